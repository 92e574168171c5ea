// Command agentcore runs the gold-loan voice agent core: a WebSocket
// transport listener that wires every component in the pipeline (VAD, STT,
// turn detection, speculative LLM execution, TTS, tool registry, agent FSM)
// into one orchestrator.Session per connection.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goldvox/agentcore/pkg/agent"
	"github.com/goldvox/agentcore/pkg/ai/llm"
	llmfake "github.com/goldvox/agentcore/pkg/ai/llm/fake"
	"github.com/goldvox/agentcore/pkg/ai/stt"
	sttfake "github.com/goldvox/agentcore/pkg/ai/stt/fake"
	ttsfake "github.com/goldvox/agentcore/pkg/ai/tts/fake"
	vadfake "github.com/goldvox/agentcore/pkg/ai/vad/fake"
	"github.com/goldvox/agentcore/pkg/config"
	"github.com/goldvox/agentcore/pkg/observe"
	"github.com/goldvox/agentcore/pkg/orchestrator"
	"github.com/goldvox/agentcore/pkg/retrieval"
	retrievalfake "github.com/goldvox/agentcore/pkg/retrieval/fake"
	"github.com/goldvox/agentcore/pkg/tools"
	"github.com/goldvox/agentcore/pkg/transport"
	"github.com/goldvox/agentcore/pkg/turn"
	"github.com/goldvox/agentcore/pkg/version"
	"github.com/spf13/cobra"
)

const (
	exitOK = iota
	exitConfigError
	exitModelLoadError
	exitTransportBindError
)

var rootCmd = &cobra.Command{
	Use:   "agentcore",
	Short: "Gold-loan voice agent core",
	Long: `agentcore runs the low-latency speech pipeline and co-operating
subsystems for a real-time, bidirectional voice agent: VAD -> STT -> turn
detection -> speculative LLM execution -> TTS, with retrieval, a tool
registry, and a sales conversation FSM driving it.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept WebSocket connections and run one orchestrator session per connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		configPath, _ := cmd.Flags().GetString("config")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		logger := setupLogger()
		logger.Info("starting agentcore",
			slog.String("version", version.Version),
			slog.String("addr", addr))

		snap, err := loadSnapshot(configPath)
		if err != nil {
			logger.Error("configuration error", slog.String("error", err.Error()))
			os.Exit(exitConfigError)
		}
		store := config.NewStore(snap)

		metrics := observe.DefaultMetrics()
		if metricsAddr != "" {
			go serveMetrics(metricsAddr, logger)
		}

		registry, err := buildToolRegistry(store.Current())
		if err != nil {
			logger.Error("failed to build tool registry", slog.String("error", err.Error()))
			os.Exit(exitConfigError)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		mux := http.NewServeMux()
		mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			handleConnection(ctx, w, r, store, registry, metrics, logger)
		})

		server := &http.Server{Addr: addr, Handler: mux}
		serveErr := make(chan error, 1)
		go func() {
			logger.Info("listening for WebSocket connections", slog.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serveErr <- err
			}
		}()

		select {
		case err := <-serveErr:
			logger.Error("transport bind failed", slog.String("error", err.Error()))
			os.Exit(exitTransportBindError)
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)
		}
		return nil
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Tool registry commands",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tools a default snapshot registers",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		snap, err := loadSnapshot(configPath)
		if err != nil {
			return err
		}
		registry, err := buildToolRegistry(snap)
		if err != nil {
			return err
		}
		for _, def := range registry.Definitions() {
			fmt.Printf("%-22s timeout=%-10s %s\n", def.Name, def.Timeout, def.Description)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration snapshot commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Load a configuration file over the defaults and validate it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		snap, err := loadSnapshot(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
			os.Exit(exitConfigError)
		}
		fmt.Printf("configuration valid: language=%s strategy=%s stages=%d\n",
			snap.Language.Primary, snap.LLM.Strategy, len(snap.Domain.Stages))
		return nil
	},
}

func setupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch os.Getenv("AGENTCORE_LOG_LEVEL") {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if os.Getenv("AGENTCORE_LOG_FORMAT") == "console" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadSnapshot loads a configuration file over config.Default(), or returns
// the defaults unchanged when path is empty. File loading itself is out of
// scope for the core per spec §1; config.Load covers only the
// runtime-visible shape.
func loadSnapshot(path string) (*config.Snapshot, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	// Prometheus scrape wiring itself lives in whatever process embeds this
	// one (spec §1: "observability exporters... out of scope"); this only
	// exposes the metric set observe.Metrics records.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	logger.Info("metrics endpoint listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", slog.String("error", err.Error()))
	}
}

// buildToolRegistry registers every required tool behavior from spec §4.8
// against the snapshot's domain data, with stub sinks for the CRM/calendar
// collaborators the core only declares an interface for.
func buildToolRegistry(snap *config.Snapshot) (*tools.Registry, error) {
	registry := tools.NewRegistry(256)

	price := snap.Domain.Price
	if price.GoldPricePerGram <= 0 {
		price.GoldPricePerGram = 6000
	}

	registry.Register(tools.Definition{
		Name:        "EligibilityCheck",
		Description: "Computes the maximum eligible gold loan for a given weight, purity, and requested amount",
		Timeout:     toolTimeout(snap, "EligibilityCheck"),
	}, tools.NewEligibilityCheckHandler(tools.EligibilityConfig{
		PricePerGram: price.GoldPricePerGram,
		Tiers:        price.ToToolTiers(),
	}))

	registry.Register(tools.Definition{
		Name:        "SavingsCalculator",
		Description: "Compares an outstanding loan's current rate against the house rate and configured competitors",
		Timeout:     toolTimeout(snap, "SavingsCalculator"),
	}, tools.NewSavingsCalculatorHandler(tools.SavingsConfig{
		HouseAnnualRatePercent: price.HouseAnnualRatePercent,
		Competitors:            price.ToToolCompetitors(),
	}))

	registry.Register(tools.Definition{
		Name:        "LeadCapture",
		Description: "Validates a 10-digit Indian mobile number and forwards the lead to the configured CRM sink",
		Timeout:     toolTimeout(snap, "LeadCapture"),
	}, tools.NewLeadCaptureHandler(&tools.StubLeadSink{}))

	registry.Register(tools.Definition{
		Name:        "AppointmentScheduler",
		Description: "Validates a requested branch visit date and books it against the configured calendar sink",
		Timeout:     toolTimeout(snap, "AppointmentScheduler"),
	}, tools.NewAppointmentSchedulerHandler(&tools.StubCalendarSink{}, nil))

	registry.Register(tools.Definition{
		Name:        "BranchLocator",
		Description: "Filters the configured branch catalog by city and/or pincode",
		Timeout:     toolTimeout(snap, "BranchLocator"),
	}, tools.NewBranchLocatorHandler(config.ToToolBranches(snap.Domain.Branches)))

	return registry, nil
}

// buildRetriever constructs the dense+sparse+rerank retriever (spec §4.6)
// over a small in-memory corpus derived from the snapshot's domain data.
// Concrete Qdrant/Tantivy clients and a real cross-encoder model are out
// of scope for this core (spec §1); the fake index/reranker/embedder
// stand in for them so the retrieval pipeline still runs end-to-end.
func buildRetriever(snap *config.Snapshot) *retrieval.Retriever {
	price := snap.Domain.Price
	docs := []retrievalfake.Doc{
		{ID: "house-rate", Text: fmt.Sprintf("Our house gold loan annual interest rate is %.2f percent.", price.HouseAnnualRatePercent)},
		{ID: "gold-price", Text: fmt.Sprintf("Today's gold price is Rs %.2f per gram for eligibility calculations.", price.GoldPricePerGram)},
	}
	for _, c := range price.Competitors {
		docs = append(docs, retrievalfake.Doc{
			ID:   "competitor-" + c.Name,
			Text: fmt.Sprintf("%s charges %.2f percent annual interest on gold loans.", c.Name, c.AnnualRatePercent),
		})
	}
	for _, b := range snap.Domain.Branches {
		docs = append(docs, retrievalfake.Doc{
			ID:   "branch-" + b.ID,
			Text: fmt.Sprintf("%s branch is in %s, pincode %s.", b.Name, b.City, b.Pincode),
		})
	}

	index := retrievalfake.New(docs...)
	return retrieval.NewRetriever(index, index, retrievalfake.NewReranker()).
		WithK(snap.Retrieval.TopK1, snap.Retrieval.TopK2, snap.Retrieval.RRFK)
}

func toolTimeout(snap *config.Snapshot, name string) time.Duration {
	for _, t := range snap.Domain.ToolDefs {
		if t.Name == name {
			return t.Timeout()
		}
	}
	return 30 * time.Second
}

// eventAdapter bridges orchestrator.EventSink's (kind, payload) shape onto
// the transport control-channel Event envelope.
type eventAdapter struct {
	t transport.Transport
}

func (a eventAdapter) SendEvent(kind string, payload any) error {
	evt := transport.Event{Type: transport.EventType(kind)}
	switch kind {
	case "transcript":
		evt.Text, _ = payload.(string)
		evt.IsFinal = true
	case "response":
		evt.Text, _ = payload.(string)
	case "status":
		evt.State, _ = payload.(string)
	default:
		evt.Message = fmt.Sprintf("%v", payload)
	}
	return a.t.SendEvent(evt)
}

// handleConnection accepts one WebSocket connection and drives it through a
// full orchestrator.Session until the client disconnects or the process
// shuts down. VAD, STT, TTS and the SLM leg always use the fake providers,
// so the pipeline is runnable without model weights present; when
// OPENAI_API_KEY is set, the LLM leg uses the OpenAI backend (gpt-4o-mini)
// instead of its fake. MODELS_PATH is not read.
func handleConnection(ctx context.Context, w http.ResponseWriter, r *http.Request, store *config.Store, registry *tools.Registry, metrics *observe.Metrics, logger *slog.Logger) {
	wsTransport, sessionID, err := transport.AcceptWebSocket(w, r, transport.AllowAllAuthenticator{}, logger)
	if err != nil {
		logger.Warn("failed to accept websocket connection", slog.String("error", err.Error()))
		return
	}
	defer wsTransport.Close()

	snap := store.Current()
	logger.Info("session connected", slog.String("session_id", sessionID))

	vadEngine := vadfake.New(0.2, 1)
	sttEngine := sttfake.New("", stt.Language(snap.Language.Primary))
	ttsEngine := ttsfake.New()

	slmBackend := llmfake.New("Let me check that for you.")
	var llmBackend llm.Backend = llmfake.New("Thanks for sharing that — here's what I found.")
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		llmBackend = llm.NewOpenAIBackend(apiKey, "gpt-4o-mini")
	}
	executor := llm.NewExecutor(slmBackend, llmBackend, llm.NewQualityEstimator(llm.DefaultQualityConfig()), snap.LLM.SLMTimeout())

	intents := agent.NewIntentClassifier(config.ToAgentIntentDefs(snap.Domain.Intents))
	graph := config.ToAgentStageGraph(snap.Domain.Stages)
	summarizer := agent.Summarizer(func(ctx context.Context, turns []agent.ConversationTurn) (string, error) {
		return "", fmt.Errorf("background summarization backend not configured")
	})
	agentSession := agent.NewSession(graph, intents, summarizer, string(snap.Language.Primary))

	retriever := buildRetriever(snap)
	prefetch := retrieval.NewPrefetchCache(retriever, retrievalfake.Embed)
	retriever = retriever.WithPrefetch(prefetch)

	orchSession := orchestrator.NewSession(orchestrator.Config{
		VAD:          vadEngine,
		STT:          sttEngine,
		TurnDetector: turn.NewDetector(snap.Turn.ToTurnConfig(), nil),
		LLM:          executor,
		Strategy:     snap.LLM.ResolveStrategy(),
		TTS:          ttsEngine,
		Session:      agentSession,
		Tools:        registry,
		Metrics:      metrics,
		Retriever:    retriever,
		Prefetch:     prefetch,
		SessionID:    sessionID,
		AudioOut:     wsTransport,
		Events:       eventAdapter{t: wsTransport},
		Language:     string(snap.Language.Primary),
	})
	defer orchSession.Close()

	_ = wsTransport.SendEvent(transport.Event{Type: transport.EventSessionInfo, SessionID: sessionID, Stage: agentSession.Stage().String()})

	if err := orchSession.Run(ctx, wsTransport.RecvAudio()); err != nil && ctx.Err() == nil {
		logger.Info("session ended", slog.String("session_id", sessionID), slog.String("reason", err.Error()))
	}
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "WebSocket listen address")
	serveCmd.Flags().String("config", "", "Path to a configuration file overriding defaults")
	serveCmd.Flags().String("metrics-addr", "", "Address to serve health/metrics endpoints on (disabled if empty)")

	toolsListCmd.Flags().String("config", "", "Path to a configuration file overriding defaults")
	configValidateCmd.Flags().String("config", "", "unused, present for flag symmetry")

	toolsCmd.AddCommand(toolsListCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(versionCmd, serveCmd, toolsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
