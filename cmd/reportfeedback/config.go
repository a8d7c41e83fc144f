/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"errors"
	"time"

	"chainguard.dev/reportfeedback/agents/executor/retry"
	"chainguard.dev/reportfeedback/grading/extract"
)

type config struct {
	ReportPath   string `env:"REPORT_PATH,default=index.qmd"`
	RubricPath   string `env:"RUBRIC_PATH,default=.github/feedback/rubric.yml"`
	GuidancePath string `env:"GUIDANCE_PATH,default=.github/feedback/guidance.md"`
	OutputDir    string `env:"OUTPUT_DIR,default=."`
	LogLevel     string `env:"LOG_LEVEL,default=info"`

	PrimaryModel   string        `env:"PRIMARY_MODEL,default=openai/gpt-4o"`
	FallbackModel  string        `env:"FALLBACK_MODEL,default=openai/gpt-4o-mini"`
	ModelsEndpoint string        `env:"MODELS_ENDPOINT,default=https://models.inference.ai.azure.com"`
	ModelsToken    string        `env:"MODELS_TOKEN"`
	ModelRetries   int           `env:"MODEL_RETRIES,default=0"`
	Concurrency    int           `env:"CONCURRENCY,default=2"`
	TokenBudget    int           `env:"TOKEN_BUDGET,default=6000"`
	ReserveTokens  int           `env:"RESERVE_TOKENS,default=0"`
	CharsPerToken  float64       `env:"CHARS_PER_TOKEN,default=4"`
	Timeout        time.Duration `env:"REQUEST_TIMEOUT,default=2m"`
	Scoring        bool          `env:"SCORING_ENABLED,default=false"`

	VisionEnabled     bool     `env:"VISION_ENABLED,default=false"`
	VisionCriteria    []string `env:"VISION_CRITERIA,default=*"`
	MaxImages         int      `env:"MAX_IMAGES,default=3"`
	ImageTokenBudget  int      `env:"IMAGE_TOKEN_BUDGET,default=2000"`
	ImageMaxDimension int      `env:"IMAGE_MAX_DIMENSION,default=0"`
	ImagePriority     []string `env:"IMAGE_PRIORITY,default=schematic,circuit,simulation,waveform,photo"`

	DebugRoot       string `env:"DEBUG_ROOT"`
	MetricsTextfile string `env:"METRICS_TEXTFILE"`

	PostIssue          bool   `env:"POST_ISSUE,default=false"`
	LocalTest          bool   `env:"LOCAL_TEST,default=false"`
	IssueTitleTemplate string `env:"ISSUE_TITLE_TEMPLATE"`
	IssueLabel         string `env:"ISSUE_LABEL,default=ai-feedback"`
	RubricLinkPath     string `env:"RUBRIC_LINK_PATH,default=.github/feedback/RUBRIC.md"`
	Repository         string `env:"GITHUB_REPOSITORY"`
	TagName            string `env:"TAG_NAME,default=local-test"`
	GitHubToken        string `env:"GITHUB_TOKEN"`
	AppID              int64  `env:"GITHUB_APP_ID"`
	InstallationID     int64  `env:"GITHUB_APP_INSTALLATION_ID"`
	AppKeyFile         string `env:"GITHUB_APP_PRIVATE_KEY_FILE"`

	GCPProject      string `env:"GOOGLE_CLOUD_PROJECT"`
	GCPRegion       string `env:"GOOGLE_CLOUD_REGION,default=us-east5"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
}

func (c config) validate() error {
	switch {
	case c.PrimaryModel == "":
		return errors.New("PRIMARY_MODEL is required")
	case c.Concurrency < 1:
		return errors.New("CONCURRENCY must be at least 1")
	case c.TokenBudget < 1:
		return errors.New("TOKEN_BUDGET must be at least 1")
	case c.CharsPerToken <= 0:
		return errors.New("CHARS_PER_TOKEN must be positive")
	case c.PostIssue && !c.LocalTest && c.Repository == "":
		return errors.New("GITHUB_REPOSITORY is required to post an issue")
	}
	return c.retryConfig().Validate()
}

func (c config) modelsToken() string {
	if c.ModelsToken != "" {
		return c.ModelsToken
	}
	return c.GitHubToken
}

func (c config) retryConfig() retry.Config {
	rc := retry.Default()
	rc.MaxRetries = c.ModelRetries
	return rc
}

func (c config) extractConfig() extract.Config {
	xc := extract.DefaultConfig()
	xc.TokenBudget = c.TokenBudget
	xc.ReserveTokens = c.ReserveTokens
	xc.CharsPerToken = c.CharsPerToken
	xc.Vision = extract.VisionConfig{
		Enabled:            c.VisionEnabled,
		Criteria:           c.VisionCriteria,
		MaxImages:          c.MaxImages,
		ImageTokenBudget:   c.ImageTokenBudget,
		ResizeMaxDimension: c.ImageMaxDimension,
		Priority:           c.ImagePriority,
	}
	return xc
}
