package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/itzneel05/voxagent"
	"github.com/itzneel05/voxagent/agents"
	"github.com/itzneel05/voxagent/catalog"
	gatewayopenai "github.com/itzneel05/voxagent/gateway/openai"
	"github.com/itzneel05/voxagent/metrics"
	recordfile "github.com/itzneel05/voxagent/record/file"
	recordsqlite "github.com/itzneel05/voxagent/record/sqlite"
	"github.com/itzneel05/voxagent/speech"
	storeredis "github.com/itzneel05/voxagent/store/redis"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive session with an agent persona",
	Long:  `Starts a console session with one of the built-in personas (barista, wellness, tutor, sdr, fraud, grocery) or with a schema loaded from a YAML file via --schema.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		agentName, _ := cmd.Flags().GetString("agent")
		schemaPath, _ := cmd.Flags().GetString("schema")
		sessionKey, _ := cmd.Flags().GetString("session")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		ctx := voxagent.WithSessionKey(context.Background(), sessionKey)
		engine, cleanup, err := buildEngine(ctx, cfg, logger, agentName, schemaPath)
		if err != nil {
			return err
		}
		defer cleanup()
		return runSession(ctx, engine)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("agent", "barista", "Built-in persona to run")
	runCmd.Flags().String("schema", "", "Path to a YAML agent schema, overrides --agent")
	runCmd.Flags().String("session", "console", "Session routing key")
}

func buildEngine(ctx context.Context, cfg *Config, logger *slog.Logger, agentName, schemaPath string) (*voxagent.Engine, func(), error) {
	cleanups := []func(){}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	schema, cat, err := resolvePersona(agentName, schemaPath)
	if err != nil {
		return nil, cleanup, err
	}

	opts := []voxagent.Option{voxagent.WithLogger(logger)}
	if cat != nil {
		opts = append(opts, voxagent.WithCatalog(cat))
	}
	if cfg.GatewayTimeout > 0 {
		opts = append(opts, voxagent.WithGatewayTimeout(cfg.GatewayTimeout.Std()))
	}

	var sqliteStore *recordsqlite.Store
	switch cfg.Records.Driver {
	case "sqlite", "":
		store, sErr := recordsqlite.Open(ctx, cfg.Records.Path)
		if sErr != nil {
			return nil, cleanup, sErr
		}
		cleanups = append(cleanups, func() { store.Close() })
		sqliteStore = store
		opts = append(opts, voxagent.WithRecordStore(store))
	case "file":
		store, sErr := recordfile.Open(cfg.Records.Path)
		if sErr != nil {
			return nil, cleanup, sErr
		}
		opts = append(opts, voxagent.WithRecordStore(store))
	case "memory":
		opts = append(opts, voxagent.WithRecordStore(voxagent.NewMemoryRecordStore()))
	default:
		return nil, cleanup, fmt.Errorf("unknown records driver %q", cfg.Records.Driver)
	}

	if cfg.Redis.Addr != "" {
		var redisOpts []storeredis.Option
		if cfg.Redis.TTL > 0 {
			redisOpts = append(redisOpts, storeredis.WithTTL(cfg.Redis.TTL.Std()))
		}
		sessions := storeredis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisOpts...)
		cleanups = append(cleanups, func() { sessions.Close() })
		opts = append(opts, voxagent.WithSessionStore(sessions))
	}

	if cfg.MetricsAddr != "" {
		collector := metrics.NewCollector(prometheus.DefaultRegisterer)
		opts = append(opts, voxagent.WithHooks(collector.Hooks()))
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	// The tutor's quiz question for the chosen topic rides in the hint.
	if schema.AgentType == "tutor" {
		content := agents.TutorContent()
		opts = append(opts, voxagent.WithHintContext(func(ctx context.Context, s *voxagent.SessionState) map[string]string {
			topic, ok := s.Slot("topic")
			if !ok {
				return nil
			}
			id, _ := topic.Value.(string)
			concept, ok := content[id]
			if !ok {
				return nil
			}
			return map[string]string{
				"topic_summary": concept.Summary,
				"quiz_question": concept.Question + " " + strings.Join(concept.Options, ", "),
			}
		}))
	}

	// Check-in personas reference the previous session's record.
	if schema.AgentType == "wellness" && sqliteStore != nil {
		opts = append(opts, voxagent.WithHintContext(func(ctx context.Context, s *voxagent.SessionState) map[string]string {
			last, lErr := sqliteStore.Latest(ctx, s.AgentType)
			if lErr != nil || last == nil {
				return nil
			}
			if mood := last.SlotString("mood"); mood != "" {
				return map[string]string{"previous_mood": mood}
			}
			return nil
		}))
	}

	var gateway voxagent.Gateway
	if cfg.OpenAI.APIKey != "" {
		gw, gErr := gatewayopenai.New(ctx, gatewayopenai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		})
		if gErr != nil {
			return nil, cleanup, gErr
		}
		gateway = gw
	} else {
		logger.Warn("no model credentials configured, running fully scripted")
		gateway = voxagent.ScriptedGateway{}
	}

	engine, err := voxagent.New(schema, gateway, opts...)
	if err != nil {
		return nil, cleanup, err
	}
	return engine, cleanup, nil
}

func resolvePersona(agentName, schemaPath string) (*voxagent.AgentSchema, catalog.Source, error) {
	if schemaPath != "" {
		schema, err := voxagent.LoadSchema(schemaPath)
		if err != nil {
			return nil, nil, err
		}
		return schema, nil, nil
	}
	switch strings.ToLower(agentName) {
	case "barista":
		return agents.Barista(), nil, nil
	case "wellness":
		return agents.Wellness(), nil, nil
	case "tutor":
		return agents.Tutor(), nil, nil
	case "sdr":
		return agents.SDR(), agents.SDRFAQ(), nil
	case "fraud":
		return agents.Fraud(demoFraudCase()), nil, nil
	case "grocery":
		return agents.Grocery(), agents.GroceryCatalog(), nil
	default:
		return nil, nil, fmt.Errorf("unknown agent %q", agentName)
	}
}

func demoFraudCase() agents.FraudCase {
	return agents.FraudCase{
		CustomerName:     "Rohan Sharma",
		MaskedCard:       "XXXX-XXXX-XXXX-4821",
		Amount:           4999.00,
		Merchant:         "QuickMart Online",
		Location:         "Mumbai",
		Timestamp:        "2025-11-06 02:14",
		SecurityQuestion: "What is the name of your first pet?",
		SecurityAnswer:   "biscuit",
	}
}

func runSession(ctx context.Context, engine *voxagent.Engine) error {
	transcriber := speech.NewConsoleTranscriber(os.Stdin)
	synthesizer := speech.NewConsoleSynthesizer(os.Stdout)

	voice := ""
	if mode, ok := engine.Schema().Mode(engine.Schema().InitialMode); ok {
		voice = mode.Voice
	}
	if err := synthesizer.Speak(ctx, voice, engine.Greeting()); err != nil {
		return err
	}
	for {
		fmt.Print("you: ")
		input, err := transcriber.Transcribe(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if input == "" {
			continue
		}
		reply, err := engine.Turn(ctx, input)
		if err != nil {
			var storageErr *voxagent.StorageError
			if errors.As(err, &storageErr) {
				slog.Error("record persistence failed", "err", storageErr)
			} else {
				return err
			}
		}
		if reply == nil {
			continue
		}
		if err := synthesizer.Speak(ctx, reply.Voice, reply.Message); err != nil {
			return err
		}
		if reply.Completed() {
			return nil
		}
	}
}
