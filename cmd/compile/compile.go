// Command compile turns an ARPA language model into a binary fslm model
// that can be memory mapped by score and by LMMACRO configs.
package main

import (
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kho/lmmacro/fslm"
)

type binaryModel interface {
	fslm.Backend
	WriteBinary(path string) error
}

func main() {
	var (
		format string
		scale  float64
		dot    string
	)
	cmd := &cobra.Command{
		Use:   "compile <model.arpa[.gz]> <model.bin>",
		Short: "Compile an ARPA language model into a binary model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			builder, err := fslm.FromARPAFile(args[0])
			if err != nil {
				return err
			}
			var model binaryModel
			switch format {
			case "hashed":
				model = builder.DumpHashed(scale)
			case "sorted":
				model = builder.DumpSorted()
			default:
				return errors.Errorf("unknown format %q; expect hashed or sorted", format)
			}
			glog.Infof("compiled %d-gram model with %d states", model.Order(), model.NumStates())
			if dot != "" {
				if err := writeDot(model, dot); err != nil {
					return errors.Wrapf(err, "writing %s", dot)
				}
			}
			if err := model.WriteBinary(args[1]); err != nil {
				return errors.Wrapf(err, "writing %s", args[1])
			}
			glog.Infof("wrote %s model to %s", format, args[1])
			return nil
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&format, "format", "hashed", "binary format: hashed or sorted")
	cmd.Flags().Float64Var(&scale, "scale", 1.5, "hash table buckets per transition of the hashed format")
	cmd.Flags().StringVar(&dot, "dot", "", "also write the automaton in Graphviz dot format to this path")
	cmd.Flags().AddGoFlagSet(flag.CommandLine)

	defer glog.Flush()
	if err := cmd.Execute(); err != nil {
		glog.Error(err)
		glog.Flush()
		os.Exit(1)
	}
}

func writeDot(model fslm.Backend, path string) (err error) {
	w, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	return fslm.WriteDot(model, w)
}
