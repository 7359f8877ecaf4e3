package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"filenet-backend/service"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// widgetEvent is the CloudWatch custom widget invocation shape. Direct
// invocations reuse the same parameter fields without widgetContext.
type widgetEvent struct {
	Describe      bool            `json:"describe"`
	WidgetContext json.RawMessage `json:"widgetContext"`

	Metrics      []service.MetricSpec `json:"metrics"`
	TimeRange    string               `json:"timeRange"`
	AnalysisType string               `json:"analysisType"`
	LogGroup     string               `json:"logGroup"`
}

type widgetContext struct {
	Params struct {
		Metrics      []service.MetricSpec `json:"metrics"`
		TimeRange    string               `json:"timeRange"`
		AnalysisType string               `json:"analysisType"`
		LogGroup     string               `json:"logGroup"`
	} `json:"params"`
}

type handler struct {
	insight *service.InsightService
}

func (h *handler) handle(ctx context.Context, event widgetEvent) (any, error) {
	// Describe calls come from the widget editor and take no parameters.
	if event.Describe {
		return service.WidgetDescription(), nil
	}

	params := service.AnalysisParams{
		Metrics:      event.Metrics,
		TimeRange:    event.TimeRange,
		AnalysisType: event.AnalysisType,
		LogGroup:     event.LogGroup,
	}

	// Dashboard invocations carry parameters inside widgetContext.
	fromWidget := len(event.WidgetContext) > 0
	if fromWidget {
		var wc widgetContext
		if err := json.Unmarshal(event.WidgetContext, &wc); err == nil {
			params = service.AnalysisParams{
				Metrics:      wc.Params.Metrics,
				TimeRange:    wc.Params.TimeRange,
				AnalysisType: wc.Params.AnalysisType,
				LogGroup:     wc.Params.LogGroup,
			}
		}
	}
	if params.TimeRange == "" {
		params.TimeRange = "1h"
	}
	if params.AnalysisType == "" {
		params.AnalysisType = "summary"
	}

	report, err := h.insight.Analyze(ctx, params)
	if err != nil {
		log.Printf("Analysis failed: %v", err)
		if fromWidget {
			return fmt.Sprintf(`<div style="color: red; padding: 10px;">Analysis failed: %s</div>`, err), nil
		}
		return nil, err
	}

	// Widget calls expect HTML; direct calls get the report as JSON.
	if fromWidget {
		html, err := service.RenderWidgetHTML(report)
		if err != nil {
			return fmt.Sprintf(`<div style="color: red; padding: 10px;">Rendering failed: %s</div>`, err), nil
		}
		return html, nil
	}

	return map[string]any{
		"analysis":    report.Analysis,
		"metricsData": report.Metrics,
		"timestamp":   report.Timestamp.Format(time.RFC3339),
	}, nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	insight := service.NewInsightService(
		service.InsightWithCloudWatch(cloudwatch.NewFromConfig(cfg)),
		service.InsightWithLogs(cloudwatchlogs.NewFromConfig(cfg)),
		service.InsightWithBedrockClient(bedrockruntime.NewFromConfig(cfg)),
	)

	h := &handler{insight: insight}
	lambda.Start(h.handle)
}
