package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/canopy-network/spectroscope/cmd/rpc"
	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/metrics"
	"github.com/canopy-network/spectroscope/module"
	"github.com/canopy-network/spectroscope/module/builtin"
	"github.com/canopy-network/spectroscope/stream"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rootCmd = &cobra.Command{
	Use:   "spectroscope",
	Short: "the beacon chain validator monitor",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initialize()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(rpc.SoftwareVersion)
	},
}

var (
	client, config, l = &rpc.Client{}, lib.Config{}, lib.LoggerI(nil)
	DataDir           = ""
)

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.PersistentFlags().StringVar(&DataDir, "data-dir", lib.DefaultDataDirPath(), "custom data directory location")
}

// initialize() loads the configuration once the flags are parsed
func initialize() {
	config = InitializeDataDirectory(DataDir, lib.NewDefaultLogger())
	l = lib.NewLogger(lib.LoggerConfig{Level: config.GetLogLevel()}, config.DataDirPath)
	client = rpc.NewClient(config.RPCUrl)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "start the validator monitor",
	Run: func(cmd *cobra.Command, args []string) {
		Start()
	},
}

// Start() is the entrypoint of the application
func Start() {
	// initialize the metrics server
	metricsServer := metrics.NewMetricsServer(config.MetricsConfig, l)
	// build every configured module in registration order
	registry, err := builtin.NewRegistry(module.Deps{Logger: l, DataDirPath: config.DataDirPath})
	if err != nil {
		l.Fatal(err.Error())
	}
	modules, err := registry.RegisterAll(config.Modules)
	if err != nil {
		l.Fatal(err.Error())
	}
	l.Infof("Registered modules: %s", strings.Join(modules.Names(), ", "))
	dispatcher := module.NewDispatcher(modules, config.DispatchConfig, l.Named("dispatcher"))
	// the watch-list starts from the persisted validators
	watch := lib.NewWatchList(l.Named("watchlist"))
	responder := rpc.NewResponder(config.RPCConfig, dispatcher, watch, l.Named("command"))
	ctx, cancel := context.WithCancel(context.Background())
	l.Infof("Watching %d persisted validators", responder.SeedWatchList(ctx))
	rpcServer := rpc.NewServer(responder, config.RPCConfig, l)
	// start the metrics and rpc servers
	metricsServer.Start()
	rpcServer.Start()
	// run the background routines until a kill signal is received; one failing doesn't stop the others
	var eg errgroup.Group
	eg.Go(func() error {
		defer lib.CatchPanic(l)
		return metrics.SampleResources(ctx, 10*time.Second)
	})
	if config.StreamURL != "" {
		driver := stream.NewDriver(config.StreamConfig, dispatcher, watch, nil, l.Named("stream"))
		eg.Go(func() error {
			defer lib.CatchPanic(l)
			return driver.Run(ctx)
		})
	} else {
		l.Warn("No stream url configured, streaming is disabled")
	}
	go func() {
		defer lib.CatchPanic(l)
		if e := eg.Wait(); e != nil {
			l.Errorf("Background routine stopped: %s", e.Error())
		}
	}()
	waitForKill()
	cancel()
	if e := rpcServer.Stop(); e != nil {
		l.Error(e.Error())
	}
	_ = eg.Wait()
	// close the modules once nothing dispatches anymore
	if e := modules.Close(); e != nil {
		l.Error(e.Error())
	}
	if e := metricsServer.Stop(); e != nil {
		l.Error(e.Error())
	}
	os.Exit(0)
}

// waitForKill() blocks until a kill signal is received
func waitForKill() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGABRT)
	// block until kill signal is received
	s := <-stop
	l.Infof("Exit command %s received", s)
}

// InitializeDataDirectory() populates the data directory with the configuration if missing and loads it
func InitializeDataDirectory(dataDirPath string, log lib.LoggerI) (c lib.Config) {
	// make the data dir if missing
	if err := os.MkdirAll(dataDirPath, os.ModePerm); err != nil {
		log.Fatal(err.Error())
	}
	// make the config.json file if missing
	configFilePath := filepath.Join(dataDirPath, lib.ConfigFilePath)
	if _, err := os.Stat(configFilePath); errors.Is(err, os.ErrNotExist) {
		log.Infof("Creating %s file", lib.ConfigFilePath)
		if err = lib.DefaultConfig().WriteToFile(configFilePath); err != nil {
			log.Fatal(err.Error())
		}
	}
	// load the config object
	c, err := lib.NewConfigFromFile(configFilePath)
	if err != nil {
		log.Fatal(err.Error())
	}
	// apply the .env file and environment overrides
	if e := c.ApplyEnv(dataDirPath); e != nil {
		log.Fatal(e.Error())
	}
	// set the data-directory
	c.DataDirPath = dataDirPath
	return
}

func writeToConsole(a any, err error) {
	if err != nil {
		l.Fatal(err.Error())
	}
	switch a.(type) {
	case int, uint32, uint64:
		p := message.NewPrinter(language.English)
		if _, err := p.Printf("%d\n", a); err != nil {
			l.Fatal(err.Error())
		}
	case string, *string:
		fmt.Println(a)
	default:
		s, err := lib.MarshalJSONIndentString(a)
		if err != nil {
			l.Fatal(err.Error())
		}
		fmt.Println(s)
	}
}

var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh]",
	Short:     "print the shell completion script, for $SHELL unless one is named",
	ValidArgs: []string{"bash", "zsh"},
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
			return err
		}
		return cobra.OnlyValidArgs(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		shell := filepath.Base(os.Getenv("SHELL"))
		if len(args) == 1 {
			shell = args[0]
		}
		if err := writeCompletion(cmd.OutOrStdout(), shell); err != nil {
			l.Fatal(err.Error())
		}
	},
}

// writeCompletion() generates the completion script of the root command for a shell
func writeCompletion(w io.Writer, shell string) error {
	switch shell {
	case "bash":
		return rootCmd.GenBashCompletion(w)
	case "zsh":
		return rootCmd.GenZshCompletion(w)
	}
	return fmt.Errorf("unsupported shell %q, use bash or zsh", shell)
}
