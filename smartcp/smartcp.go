// Command smartcp copies or moves a file from one place to another, even
// between supported remote systems:
//
//	smartcp /tmp/report.csv s3://bucket/reports/report.csv
//	smartcp -move sftp://user@host/in/a.txt mem://scratch/a.txt
//
// Backend credentials come from a config file (see the config package):
//
//	smartcp -config /etc/smartfs.yaml gs://bucket/a.txt ./a.txt
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"

	"github.com/smartfs/smartfs/config"
	"github.com/smartfs/smartfs/smartsimple"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a yaml/json backend config file")
		move       = flag.Bool("move", false, "remove the source after a successful copy")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: smartcp [flags] <source uri> <target uri>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*configPath, *move, flag.Args()); err != nil {
		color.Red("smartcp: %v", err)
		os.Exit(1)
	}
}

func run(configPath string, move bool, args []string) error {
	if len(args) != 2 || args[0] == "" || args[1] == "" {
		return errors.New("two non-empty arguments are required")
	}
	src, dst := args[0], args[1]

	if configPath != "" {
		loader := config.NewLoader()
		if err := loader.LoadFile(configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := loader.ApplyDefault(); err != nil {
			return fmt.Errorf("apply config: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	verb := "Copying"
	if move {
		verb = "Moving"
	}
	fmt.Printf("%s %s to %s\n", verb, color.CyanString(src), color.CyanString(dst))

	var err error
	if move {
		err = smartsimple.Move(ctx, src, dst)
	} else {
		err = smartsimple.Copy(ctx, src, dst)
	}
	if err != nil {
		return err
	}

	color.Green("done")
	return nil
}
