package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron"
	"k8s.io/klog"

	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/banksync"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/config"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/server"
)

type Runner interface {
	Run() error
}

var runner Runner

func main() {
	singleRun := flag.Bool("single-run", false, "run task once (disable cron)")
	configFile := flag.String("config", "./config.yml", "configuration file")
	secretsFile := flag.String("secrets", "./secrets.ejson", "secrets file")
	help := flag.Bool("help", false, "show command help")

	flag.Parse()

	if *help {
		fmt.Println("budget blueprint backend")
		fmt.Println("budget-blueprint [options] task")
		fmt.Println("tasks: server, sync")
		flag.PrintDefaults()
		return
	}

	err := config.ReadConfig("BUDGET_CONFIG", *configFile, *secretsFile)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if flag.NArg() == 0 {
		fmt.Println("No task passed in")
		return
	}

	switch flag.Arg(0) {
	case "server":
		runner = server.Runner{}
	case "sync":
		runner = banksync.Runner{}
	default:
		fmt.Printf("Unknown task %s\n", flag.Arg(0))
		return
	}

	run()

	// the server blocks in Run, cron only makes sense for the sync task
	if flag.Arg(0) != "sync" || *singleRun {
		return
	}

	c := cron.New()
	c.AddFunc(config.CurrentBankingConfig().UpdateFrequency, run)

	c.Start()

	select {}
}

func run() {
	klog.Info(time.Now().Format(time.RFC850))

	err := runner.Run()
	if err != nil {
		klog.Error(err)
	}
}
