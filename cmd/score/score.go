// Command score computes the log-probability and perplexity of the
// sentences on stdin, one per line, with either a plain fslm model or
// an LMMACRO config.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/kho/lmmacro"
	"github.com/kho/lmmacro/fslm"
)

type options struct {
	unk        fslm.Weight
	cacheSize  int
	cpuprofile string
	memprofile string
}

func main() {
	opts := options{unk: -100}
	cmd := &cobra.Command{
		Use:   "score <model|config>",
		Short: "Score sentences from stdin",
		Long: `Score sentences from stdin. The model is an ARPA file (optionally
gzipped), a binary model written by compile, or an LMMACRO config
(text or .yaml) wrapping one of those.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], opts)
		},
	}
	cmd.Flags().Var(&opts.unk, "unk", "score for <unk>")
	cmd.Flags().IntVar(&opts.cacheSize, "cache", 0, "score cache entries of a plain model; 0 disables it")
	cmd.Flags().StringVar(&opts.cpuprofile, "cpuprofile", "", "path to write CPU profile")
	cmd.Flags().StringVar(&opts.memprofile, "memprofile", "", "path to write memory profile")
	cmd.Flags().AddGoFlagSet(flag.CommandLine)

	defer glog.Flush()
	if err := cmd.Execute(); err != nil {
		glog.Error(err)
		glog.Flush()
		os.Exit(1)
	}
}

func run(path string, opts options) error {
	if opts.cpuprofile != "" {
		w, err := os.Create(opts.cpuprofile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(w); err != nil {
			w.Close()
			return err
		}
		defer func() {
			pprof.StopCPUProfile()
			w.Close()
		}()
	}
	if opts.memprofile != "" {
		defer func() {
			w, err := os.Create(opts.memprofile)
			if err != nil {
				glog.Error(err)
				return
			}
			defer w.Close()
			if err := pprof.WriteHeapProfile(w); err != nil {
				glog.Error(err)
			}
		}()
	}

	isConfig, err := lmmacro.IsConfigFile(path)
	if err != nil {
		return err
	}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	var stats lmmacro.Stats
	if isConfig {
		m, err := lmmacro.Load(path)
		if err != nil {
			return err
		}
		defer m.Close()
		logMemory(&before, &after)
		stats, err = evaluate[lmmacro.MicroCode](m, opts.unk)
		if err != nil {
			return err
		}
	} else {
		backend, closer, err := fslm.Open(path)
		if err != nil {
			return err
		}
		defer closer.Close()
		m, err := fslm.NewScorer(backend, opts.cacheSize)
		if err != nil {
			return err
		}
		glog.Infof("loaded %d-gram LM with %d states and %d words", backend.Order(), backend.NumStates(), m.Dict().Bound())
		logMemory(&before, &after)
		if stats, err = evaluate[fslm.WordId](m, opts.unk); err != nil {
			return err
		}
		if opts.cacheSize > 0 {
			hits, misses := m.CacheStats()
			glog.Infof("cache: %d hits, %d misses", hits, misses)
		}
	}

	if stats.Words > 0 {
		fmt.Printf("%d sents, %d words, %d OOVs, %d backoffs\n", stats.Sentences, stats.Words, stats.OOVs, stats.BackOffs)
		fmt.Printf("logprob=%g ppl=%g ppl1=%g\n", stats.LogProb, stats.Perplexity(), stats.PerplexityNoEOS())
	}
	return nil
}

func logMemory(before, after *runtime.MemStats) {
	runtime.GC()
	runtime.ReadMemStats(after)
	glog.Infof("LM memory usage: %.2fMB", float64(int64(after.Alloc)-int64(before.Alloc))/float64(1<<20))
}

func evaluate[C lmmacro.Code](m lmmacro.NgramModel[C], unk fslm.Weight) (lmmacro.Stats, error) {
	var report func(lmmacro.Stats, []lmmacro.TokenScore)
	if glog.V(1) {
		report = func(_ lmmacro.Stats, scores []lmmacro.TokenScore) { printScores(scores, unk) }
	}
	return lmmacro.Evaluate(m, os.Stdin, unk, report)
}

// printScores prints one line per token: the token, its weight, the
// number of words backed off and the running total.
func printScores(scores []lmmacro.TokenScore, unk fslm.Weight) {
	var total float64
	for _, s := range scores {
		w := s.Score.Weight
		word := fmt.Sprintf("%q", s.Word)
		if s.OOV {
			w, word = unk, fslm.UNK
		}
		total += float64(w)
		fmt.Printf("%s\t%g\t%d\t%g\n", word, w, s.Score.Level, total)
	}
	fmt.Println()
}
