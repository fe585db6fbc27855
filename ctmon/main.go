package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/itohio/goct/pkg/config"
	"github.com/itohio/goct/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	var (
		portFlag      = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag    = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag      = flag.Bool("mock", false, "Use mocked ADC instead of serial port")
		headlessFlag  = flag.Bool("headless", false, "Run without GUI, log and publish readings")
		calibrateFlag = flag.Bool("calibrate", false, "Estimate zero-current references and exit (inputs must carry no load)")
		writeFlag     = flag.Bool("write", false, "With -calibrate, store the estimate in the configuration file")
		passesFlag    = flag.Int("passes", 0, "With -headless, stop after this many passes (0 = run until interrupted)")
		versionFlag   = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Println(versioninfo.Short())
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting ctmon", zap.String("version", versioninfo.Short()), zap.String("config", *configFlag))

	app := &app{
		cfg:        cfg,
		configPath: *configFlag,
		useMock:    *mockFlag,
		logger:     logger,
	}

	switch {
	case *calibrateFlag:
		err = app.calibrate(os.Stdout, *writeFlag)
	case *headlessFlag:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = app.runHeadless(ctx, *passesFlag)
	default:
		runGUI(app)
	}

	if err != nil {
		logger.Error("ctmon failed", zap.Error(err))
		logger.Sync() //nolint:errcheck
		os.Exit(1)
	}
}
