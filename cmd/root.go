package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"courtmap/api"
	"courtmap/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIURL = "COURTMAP_API_URL"
	envAPIKey = "COURTMAP_API_KEY"
)

var (
	outputJSON    bool
	outputCompact bool
	verbose       bool
	logFile       string
	cfg           Config
	client        = api.NewClient()
	logger        = log.New(io.Discard, "", 0)
	logCloser     io.Closer
)

type Config struct {
	DefaultLocation string   `json:"default_location"`
	DefaultRadius   float64  `json:"default_radius"`
	DefaultSort     string   `json:"default_sort"`
	APIBaseURL      string   `json:"api_base_url"`
	FavouriteSkills []string `json:"favourite_skills"`
}

var rootCmd = &cobra.Command{
	Use:   "courtmap",
	Short: "Discover courts near a location, open now and ranked",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputJSON && outputCompact {
			return fmt.Errorf("choose either --json or --compact")
		}
		if err := setupLogging(); err != nil {
			return err
		}
		configureClient()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(nearbyCmd())
	rootCmd.AddCommand(mapCmd())
	rootCmd.AddCommand(placesCmd())
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(snapshotsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output JSON")
	rootCmd.PersistentFlags().BoolVar(&outputCompact, "compact", false, "Output compact text")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log fetches and session changes to stderr")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append logs to this file")
}

func initConfig() {
	// A .env file is optional.
	_ = godotenv.Load()

	loaded, err := loadConfig()
	if err == nil {
		cfg = loaded
	}
}

func setupLogging() error {
	switch {
	case logFile != "":
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logger = log.New(file, "", log.LstdFlags)
		logCloser = file
	case verbose:
		logger = log.New(os.Stderr, "courtmap ", log.LstdFlags)
	}
	return nil
}

// configureClient applies, in increasing precedence, the config file, stored
// credentials and the environment.
func configureClient() {
	if base := strings.TrimSpace(cfg.APIBaseURL); base != "" {
		client.BaseURL = base
	}
	if creds, err := storage.LoadCredentials(); err == nil && creds != nil {
		client.APIKey = creds.APIKey
	}
	if base := strings.TrimSpace(os.Getenv(envAPIURL)); base != "" {
		client.BaseURL = base
	}
	if key := strings.TrimSpace(os.Getenv(envAPIKey)); key != "" {
		client.APIKey = key
	}
	logger.Printf("client base_url=%s auth=%t", client.BaseURL, client.APIKey != "")
}

func loadConfig() (Config, error) {
	var conf Config
	if err := storage.LoadConfig(&conf); err != nil {
		return Config{}, err
	}
	return conf, nil
}
