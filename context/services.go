package context

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/promptlab/promptflow/agent"
	"github.com/promptlab/promptflow/align"
	"github.com/promptlab/promptflow/artifact"
	"github.com/promptlab/promptflow/config"
	"github.com/promptlab/promptflow/controller"
	"github.com/promptlab/promptflow/eventlog"
	"github.com/promptlab/promptflow/prompt"
	"github.com/promptlab/promptflow/scoring"
	"github.com/promptlab/promptflow/store"
	"github.com/promptlab/promptflow/task"
	llm "github.com/randalmurphal/llmkit/claude"
)

// Services wraps all promptflow services for convenient initialization
type Services struct {
	Store     store.Store
	Artifacts *artifact.Manager
	Log       eventlog.Log
	LLM       llm.Client // flowgraph llm.Client interface
	Prompts   *prompt.Loader
	Checker   *align.Checker
	Matrices  *scoring.Registry
	Evaluator scoring.Evaluator
	Improver  controller.Improver

	// Settings are the resolved lifecycle settings the services were built
	// from.
	Settings config.Settings
}

// InjectAll adds all configured services to the context
func (s *Services) InjectAll(ctx context.Context) context.Context {
	if s.Store != nil {
		ctx = WithStore(ctx, s.Store)
	}
	if s.Artifacts != nil {
		ctx = WithArtifact(ctx, s.Artifacts)
	}
	if s.Log != nil {
		ctx = WithLog(ctx, s.Log)
	}
	if s.LLM != nil {
		ctx = WithLLM(ctx, s.LLM)
	}
	if s.Prompts != nil {
		ctx = WithPrompt(ctx, s.Prompts)
	}
	if s.Evaluator != nil {
		ctx = WithEvaluator(ctx, s.Evaluator)
	}
	if s.Improver != nil {
		ctx = WithImprover(ctx, s.Improver)
	}
	return ctx
}

// Controller assembles a retry controller from the wired services.
func (s *Services) Controller(threshold float64, maxRetries int) *controller.Controller {
	return controller.New(controller.Config{
		Gate:         scoring.NewGate(s.Evaluator, threshold),
		Improver:     s.Improver,
		Manager:      s.Artifacts,
		Checker:      s.Checker,
		Log:          s.Log,
		Matrices:     s.Matrices,
		MaxRetries:   maxRetries,
		WriteReports: true,
	})
}

// DefaultController assembles a retry controller using the threshold and
// retry budget from the resolved settings.
func (s *Services) DefaultController() *controller.Controller {
	return s.Controller(s.Settings.Threshold, s.Settings.MaxRetries)
}

// Config configures NewServices
type Config struct {
	BaseDir   string // Base directory for artifact storage (default: ".promptflow")
	PromptDir string // Directory for prompt templates (default: BaseDir/prompts)
	LogDir    string // Directory for event logs (default: BaseDir/<settings log_root>)
	ReportDir string // Root for quality and feedback reports (default: "reports")
	MatrixDir string // Directory of scoring matrix YAML files (default: settings matrix_dir)
	Fallback  string // Fallback matrix name for unregistered bases (default: "template")
	Strategy  agent.Strategy

	// Settings overrides the resolved lifecycle settings. Nil selects the
	// built-in defaults; callers wanting files and environment applied pass
	// the result of config.Load.
	Settings *config.Settings

	// LLM configuration
	LLMModel   string // Model to use (default: chosen per the evaluate task tier)
	LLMWorkdir string // Working directory for LLM (default: BaseDir)
}

// NewServices creates Services with common defaults
func NewServices(cfg Config) (*Services, error) {
	s := &Services{}

	settings := config.DefaultSettings()
	if cfg.Settings != nil {
		settings = *cfg.Settings
	}
	s.Settings = settings

	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = ".promptflow"
	}

	st, err := store.NewFSStore(baseDir)
	if err != nil {
		return nil, err
	}
	s.Store = st

	s.Artifacts = artifact.NewManager(artifact.ManagerConfig{
		Store:      st,
		Roots:      stageRoots(settings.ArtifactRoots),
		SkipConfig: settings.AllowSkipConfig,
	})

	logDir := cfg.LogDir
	if logDir == "" {
		logDir = filepath.Join(baseDir, settings.LogRoot)
	}
	log, err := eventlog.NewFileLog(logDir)
	if err != nil {
		return nil, err
	}
	s.Log = log

	reportDir := cfg.ReportDir
	if reportDir == "" {
		reportDir = "reports"
	}
	s.Checker = align.NewChecker(st, reportDir)

	fallback := cfg.Fallback
	if fallback == "" {
		fallback = "template"
	}
	s.Matrices = scoring.NewRegistry(fallback)
	if err := scoring.RegisterDefaults(s.Matrices); err != nil {
		return nil, err
	}
	// Matrix files on disk override the embedded defaults name by name.
	matrixDir := cfg.MatrixDir
	if matrixDir == "" {
		matrixDir = settings.MatrixDir
	}
	if matrixDir != "" && !filepath.IsAbs(matrixDir) {
		matrixDir = filepath.Join(baseDir, matrixDir)
	}
	if matrixDir != "" {
		if err := loadMatrices(s.Matrices, matrixDir); err != nil {
			return nil, err
		}
	}

	promptDir := cfg.PromptDir
	if promptDir == "" {
		promptDir = filepath.Join(baseDir, "prompts")
	}
	s.Prompts = prompt.NewLoader(promptDir)

	strategy := cfg.Strategy
	if strategy == "" {
		strategy = agent.Strategy(settings.Strategy)
	}

	// Create LLM client using flowgraph's llm.ClaudeCLI. Heuristic setups
	// never call the model, so skip the client entirely for them.
	if strategy != "" && strategy != agent.StrategyHeuristic {
		model := cfg.LLMModel
		if model == "" {
			model = string(task.SelectModel(task.Evaluate))
		}
		workdir := cfg.LLMWorkdir
		if workdir == "" {
			workdir = baseDir
		}
		s.LLM = llm.NewClaudeCLI(
			llm.WithModel(model),
			llm.WithWorkdir(workdir),
			llm.WithDangerouslySkipPermissions(), // Non-interactive mode for automation
		)
	}

	evaluator, improver, err := agent.New(agent.Config{
		Strategy: strategy,
		Client:   s.LLM,
		Prompts:  s.Prompts,
	})
	if err != nil {
		return nil, err
	}
	s.Evaluator = evaluator
	s.Improver = improver

	return s, nil
}

// stageRoots converts the settings' stage-name keyed roots into manager
// roots.
func stageRoots(roots map[string]string) map[artifact.Stage]string {
	if len(roots) == 0 {
		return nil
	}
	out := make(map[artifact.Stage]string, len(roots))
	for name, root := range roots {
		out[artifact.Stage(name)] = root
	}
	return out
}

// loadMatrices registers every matrix YAML file found in dir.
func loadMatrices(reg *scoring.Registry, dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("glob matrix dir %s: %w", dir, err)
	}
	for _, path := range paths {
		m, err := scoring.LoadMatrix(path)
		if err != nil {
			return fmt.Errorf("load matrix %s: %w", path, err)
		}
		reg.Register(m)
	}
	return nil
}
