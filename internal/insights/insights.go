// Package insights turns performance summaries into short plain-language
// narratives using AWS Bedrock. The generator is optional: when disabled
// it produces empty narratives and the summary endpoints serve numbers
// only. All data stays within AWS.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/adpulse/metrics-engine/internal/config"
)

// Generator produces narratives for campaign summaries.
type Generator struct {
	client    *bedrockruntime.Client
	modelID   string
	maxTokens int
	enabled   bool
}

// NarrativeInput is one summary to narrate.
type NarrativeInput struct {
	CampaignName string
	Platform     string
	StartDate    string
	EndDate      string

	// MetricLines are preformatted "name: value (change)" rows. The model
	// narrates from these and adds no numbers of its own.
	MetricLines []string
}

type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// New creates a narrative generator. A disabled configuration yields a
// generator whose Narrative always returns "".
func New(ctx context.Context, cfg config.InsightsConfig) (*Generator, error) {
	if !cfg.Enabled {
		return &Generator{enabled: false}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	g := &Generator{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		modelID:   cfg.ModelID,
		maxTokens: maxTokens,
		enabled:   true,
	}
	log.Printf("insights: initialized with model=%s, region=%s", cfg.ModelID, cfg.Region)
	return g, nil
}

// Enabled reports whether narratives will be generated.
func (g *Generator) Enabled() bool { return g.enabled }

const systemPrompt = `You are a performance marketing analyst reviewing cross-platform ad campaign data. You write short narrative summaries for marketing teams.

## Response Guidelines
1. Two to four sentences, plain language, no bullet points
2. Lead with the most significant change in the period
3. Mention efficiency (CPA, ROAS) before volume (impressions, clicks) when both moved
4. Only reference numbers present in the data; never invent figures
5. Flag spend without attributed revenue as worth investigating`

// Narrative produces a short text summary of the metrics. When the
// generator is disabled it returns "" with no error.
func (g *Generator) Narrative(ctx context.Context, in NarrativeInput) (string, error) {
	if !g.enabled {
		return "", nil
	}

	request := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        g.maxTokens,
		System:           systemPrompt,
		Messages: []bedrockMessage{
			{
				Role: "user",
				Content: []bedrockContentBlock{
					{Type: "text", Text: buildPrompt(in)},
				},
			},
		},
		Temperature: 0.3,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return "", fmt.Errorf("Bedrock API error: %w", err)
	}

	var response bedrockResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var text string
	for _, content := range response.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}

	log.Printf("insights: narrative generated (in: %d tokens, out: %d tokens)",
		response.Usage.InputTokens, response.Usage.OutputTokens)

	return strings.TrimSpace(text), nil
}

func buildPrompt(in NarrativeInput) string {
	var b strings.Builder
	b.WriteString("## Performance Data\n")
	if in.CampaignName != "" {
		fmt.Fprintf(&b, "Campaign: %s\n", in.CampaignName)
	}
	if in.Platform != "" {
		fmt.Fprintf(&b, "Platform: %s\n", in.Platform)
	}
	fmt.Fprintf(&b, "Period: %s to %s\n\n", in.StartDate, in.EndDate)
	for _, line := range in.MetricLines {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nWrite the narrative summary for this period.")
	return b.String()
}
