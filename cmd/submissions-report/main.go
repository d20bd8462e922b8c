package main

import (
	"log"
	"os"

	"github.com/Sai-Yarlagadda/grading-14763/pkg/config"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/gitrepo"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	cli := commandLine{
		cfg:       cfg,
		logger:    logr,
		inspector: gitrepo.NewInspector(cfg.Git, logr),
		out:       os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logr.Sugar().Errorw("command failed", "error", err)
		}
		os.Exit(1)
	}
}
