package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"text2phenotype.com/admitnote/api"
	"text2phenotype.com/admitnote/logger"
	"text2phenotype.com/admitnote/pipeline"
	"text2phenotype.com/admitnote/types"
	"text2phenotype.com/admitnote/utils"
	"text2phenotype.com/admitnote/worker"
)

type Config struct {
	ConfigPath    string `envconfig:"ADMITNOTE_CONFIG_PATH"`
	RestAPIActive bool   `envconfig:"ADMITNOTE_REST_API_ACTIVE" default:"false"`
	RestAPIPort   string `envconfig:"ADMITNOTE_REST_API_PORT" default:"10000"`
	WorkerActive  bool   `envconfig:"ADMITNOTE_WORKER_ACTIVE" default:"true"`
}

const pipelineStartMaxRetries = 5

func main() {
	logger.SetupLogging()
	mainLogger := logger.NewLogger("Main")
	renderPath := flag.String("render", "", "render a case file to stdout and exit")
	flag.Parse()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		mainLogger.Fatal().Caller().Err(err).Msg("Failed to read environment")
	}

	ppln := loadPipeline(config, &mainLogger)

	if *renderPath != "" {
		if err := renderFile(ppln, *renderPath); err != nil {
			mainLogger.Fatal().Err(err).Str("file_path", *renderPath).Msg("Failed to render case")
		}
		return
	}

	if config.RestAPIActive {
		go serveAPI(ppln, config.RestAPIPort, &mainLogger)
	}
	if !config.WorkerActive {
		select {}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mainLogger.Info().Msg("Start narrative worker")
	for ctx.Err() == nil {
		rmqWorker, err := worker.New(ppln)
		if err != nil {
			mainLogger.Fatal().Err(err).Msg("Could not initialize RMQ worker")
		}
		if err = rmqWorker.Run(ctx); err != nil {
			mainLogger.Err(err).Msg("Worker returned with error. Launching new in 5 seconds")
			time.Sleep(5 * time.Second)
		}
	}
	mainLogger.Info().Msg("Narrative worker stopped")
}

// loadPipeline retries reading the configuration directory, which may be
// mounted after the container starts.
func loadPipeline(config Config, mainLogger *zerolog.Logger) pipeline.Pipeline {
	if config.ConfigPath == "" {
		mainLogger.Info().Msg("ADMITNOTE_CONFIG_PATH is not set, using default configurations")
		ppln, err := pipeline.Narrative(types.DefaultConfigurations())
		if err != nil {
			mainLogger.Fatal().Err(err).Msg("Failed to build default pipeline")
		}
		return ppln
	}
	for retry := 0; retry < pipelineStartMaxRetries; retry++ {
		cfgs, err := types.LoadConfigurations(config.ConfigPath)
		if err != nil {
			mainLogger.Err(err).Msg("Failed to load configurations. Retrying in 5 sec")
			time.Sleep(5 * time.Second)
			continue
		}
		mainLogger.Info().Msgf("Loaded %d configurations", len(cfgs))
		ppln, err := pipeline.Narrative(cfgs)
		if err != nil {
			mainLogger.Err(err).Msg("Failed to start narrative pipeline. Retrying in 5 sec")
			time.Sleep(5 * time.Second)
			continue
		}
		return ppln
	}
	mainLogger.Fatal().Msgf("Could not start pipeline after %d retries, exiting", pipelineStartMaxRetries)
	return nil
}

func renderFile(ppln pipeline.Pipeline, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	c, err := pipeline.ParseCase(data)
	if err != nil {
		return err
	}
	result, ok := <-ppln(pipeline.Request{Tid: utils.ContentID(data), Case: c})
	if !ok {
		return fmt.Errorf("pipeline returned no result for %s", filePath)
	}
	_, err = fmt.Fprintln(os.Stdout, result)
	return err
}

func serveAPI(ppln pipeline.Pipeline, port string, mainLogger *zerolog.Logger) {
	server := &api.Server{Pipeline: ppln}
	host := fmt.Sprintf(":%s", port)
	mainLogger.Info().Msgf("REST API on %s", host)
	err := http.ListenAndServe(host, server.Routes())
	mainLogger.Fatal().Err(err).Msg("REST API stopped with error")
}
