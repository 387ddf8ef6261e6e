// =============================================================================
// 🗜️ preprocess 命令：离线语料压缩
// =============================================================================
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/duqa-project/duqa/config"
	"github.com/duqa-project/duqa/preprocess"
)

func runPreprocess(args []string) {
	fs := flag.NewFlagSet("preprocess", flag.ExitOnError)
	dataPath := fs.String("data", "", "Input corpus file (JSON lines)")
	outputPath := fs.String("output", "", "Output file (default: stdout)")
	mode := fs.String("mode", "train", "Corpus split: train, dev or test")
	maxPLen := fs.Int("maxp", 500, "Max title+passage token length")
	topN := fs.Int("topn", 3, "Number of passages to keep per document")
	doClean := fs.Bool("do-clean", false, "Drop train records whose answer span mismatches")
	eval := fs.Bool("eval", false, "Report answer recall of the selected passages")
	fs.Parse(args)

	if *dataPath == "" {
		fmt.Fprintln(os.Stderr, "preprocess: --data is required")
		fs.Usage()
		os.Exit(1)
	}

	logger, err := config.DefaultLogConfig().BuildLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := preprocess.RunnerConfig{
		Mode:    *mode,
		MaxPLen: *maxPLen,
		TopN:    *topN,
		DoClean: *doClean,
		Eval:    *eval,
	}

	runner, err := preprocess.NewRunner(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preprocess: %v\n", err)
		os.Exit(1)
	}

	in, err := os.Open(*dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preprocess: %v\n", err)
		os.Exit(1)
	}
	defer in.Close()

	var out io.Writer = os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "preprocess: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	stats, err := runner.Process(in, out)
	if err != nil {
		logger.Error("preprocess failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("preprocess finished",
		zap.Int("total", stats.Total),
		zap.Int("output", stats.Output),
		zap.Int("answer_not_match", stats.AnswerNotMatch),
	)
	if *eval {
		logger.Info("passage selection recall",
			zap.Float64("avg_recall", stats.AvgRecall()),
			zap.Float64("avg_passage_len", stats.AvgPassageLen()),
			zap.Int("passage_len_max", stats.PassageLenMax),
			zap.Int("passage_len_min", stats.PassageLenMin),
		)
	}
}
