// Package config loads experiment configuration from YAML and builds
// the configured strategy.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/evostrat/internal/es"
)

// Config is the root experiment configuration.
type Config struct {
	Strategy   string         `yaml:"strategy"`  // openes|pepg|ga|cmaes|nses|nsres|nsraes
	Objective  string         `yaml:"objective"` // sphere|rastrigin|rosenbrock
	NumParams  int            `yaml:"num_params"`
	PopSize    int            `yaml:"popsize"`
	Iterations int            `yaml:"iterations"`
	Seed       int64          `yaml:"seed"`
	ES         ESConfig       `yaml:"es"`
	PEPG       PEPGConfig     `yaml:"pepg"`
	GA         GAConfig       `yaml:"ga"`
	Novelty    NoveltyConfig  `yaml:"novelty"`
	Run        RunConfig      `yaml:"run"`
	Step       *es.StepConfig `yaml:"step,omitempty"`
}

// ESConfig holds parameters shared by the gradient-based strategies.
type ESConfig struct {
	SigmaInit   float64 `yaml:"sigma_init"`
	WeightDecay float64 `yaml:"weight_decay"`
	Antithetic  bool    `yaml:"antithetic"`
	RankFitness *bool   `yaml:"rank_fitness,omitempty"` // pointer so "absent" differs from "false"
}

// PEPGConfig holds PEPG-specific parameters.
type PEPGConfig struct {
	EliteRatio      float64 `yaml:"elite_ratio"` // > 0 switches to greedy elite mode
	AverageBaseline *bool   `yaml:"average_baseline,omitempty"`
}

// GAConfig holds genetic-algorithm parameters.
type GAConfig struct {
	EliteRatio float64 `yaml:"elite_ratio"`
	ForgetBest bool    `yaml:"forget_best"`
}

// NoveltyConfig holds novelty-search parameters.
type NoveltyConfig struct {
	MetapopulationSize int     `yaml:"metapopulation_size"`
	K                  int     `yaml:"k"`
	Weight             float64 `yaml:"weight"` // nsres blend weight
}

// RunConfig holds training-loop parameters.
type RunConfig struct {
	Workers            int    `yaml:"workers"`
	CheckpointInterval int    `yaml:"checkpoint_interval"` // every N iterations, 0 disables
	DataDir            string `yaml:"data_dir"`
	TraceParams        bool   `yaml:"trace_params"` // include best params in trace entries
}

// Default returns a runnable baseline configuration.
func Default() Config {
	return Config{
		Strategy:   "openes",
		Objective:  "sphere",
		NumParams:  10,
		PopSize:    64,
		Iterations: 200,
		Seed:       42,
		ES: ESConfig{
			SigmaInit:   0.1,
			WeightDecay: 0.01,
		},
		GA: GAConfig{
			EliteRatio: 0.1,
		},
		Novelty: NoveltyConfig{
			MetapopulationSize: 10,
			K:                  10,
			Weight:             0.5,
		},
		Run: RunConfig{
			Workers: 4,
			DataDir: "./data",
		},
	}
}

// Load reads a YAML config file over the defaults and validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks fields common to every strategy; strategy
// constructors enforce their own invariants on top.
func (c *Config) Validate() error {
	if c.NumParams <= 0 {
		return fmt.Errorf("num_params must be positive, got %d", c.NumParams)
	}
	if c.PopSize < 2 {
		return fmt.Errorf("popsize must be at least 2, got %d", c.PopSize)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", c.Run.Workers)
	}
	return nil
}

// NewStrategy builds the configured strategy.
func (c *Config) NewStrategy() (es.Strategy, error) {
	switch c.Strategy {
	case "openes":
		oc := es.DefaultOpenESConfig(c.NumParams)
		oc.PopSize = c.PopSize
		oc.Seed = c.Seed
		oc.SigmaInit = c.ES.SigmaInit
		oc.WeightDecay = c.ES.WeightDecay
		oc.Antithetic = c.ES.Antithetic
		if c.ES.RankFitness != nil {
			oc.RankFitness = *c.ES.RankFitness
		}
		if c.Step != nil {
			oc.Step = *c.Step
		}
		return es.NewOpenES(oc)
	case "pepg":
		pc := es.DefaultPEPGConfig(c.NumParams)
		pc.PopSize = c.PopSize
		pc.Seed = c.Seed
		pc.SigmaInit = c.ES.SigmaInit
		pc.WeightDecay = c.ES.WeightDecay
		if c.ES.RankFitness != nil {
			pc.RankFitness = *c.ES.RankFitness
		}
		pc.EliteRatio = c.PEPG.EliteRatio
		if c.PEPG.AverageBaseline != nil {
			pc.AverageBaseline = *c.PEPG.AverageBaseline
		}
		return es.NewPEPG(pc)
	case "ga":
		gc := es.DefaultSimpleGAConfig(c.NumParams)
		gc.PopSize = c.PopSize
		gc.Seed = c.Seed
		gc.SigmaInit = c.ES.SigmaInit
		gc.WeightDecay = c.ES.WeightDecay
		if c.GA.EliteRatio > 0 {
			gc.EliteRatio = c.GA.EliteRatio
		}
		gc.ForgetBest = c.GA.ForgetBest
		return es.NewSimpleGA(gc)
	case "cmaes":
		cc := es.DefaultCMAESConfig(c.NumParams)
		cc.PopSize = c.PopSize
		cc.Seed = c.Seed
		cc.SigmaInit = c.ES.SigmaInit
		cc.WeightDecay = c.ES.WeightDecay
		return es.NewCMAES(cc)
	case "nses", "nsres", "nsraes":
		nc := es.DefaultNoveltyESConfig(c.NumParams)
		nc.PopSize = c.PopSize
		nc.Seed = c.Seed
		nc.SigmaInit = c.ES.SigmaInit
		nc.Antithetic = c.ES.Antithetic
		if c.Novelty.MetapopulationSize > 0 {
			nc.MetapopulationSize = c.Novelty.MetapopulationSize
		}
		if c.Novelty.K > 0 {
			nc.K = c.Novelty.K
		}
		if c.Step != nil {
			nc.Step = *c.Step
		}
		switch c.Strategy {
		case "nses":
			return es.NewNSES(nc)
		case "nsres":
			return es.NewNSRES(nc, c.Novelty.Weight)
		default:
			return es.NewNSRAES(nc)
		}
	default:
		return nil, fmt.Errorf("unknown strategy %q", c.Strategy)
	}
}
