package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// CloudWatchAPI is the slice of the CloudWatch client the service uses.
type CloudWatchAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// CloudWatchLogsAPI is the slice of the CloudWatch Logs client the service uses.
type CloudWatchLogsAPI interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// InsightService fetches CloudWatch metrics and logs and asks Bedrock for
// an operational analysis. It backs the dashboard widget Lambda.
type InsightService struct {
	cw      CloudWatchAPI
	logs    CloudWatchLogsAPI
	bedrock BedrockInvoker
	modelID string
}

// InsightServiceOption is a functional option for InsightService
type InsightServiceOption func(*InsightService)

// InsightWithCloudWatch sets the CloudWatch client
func InsightWithCloudWatch(client CloudWatchAPI) InsightServiceOption {
	return func(s *InsightService) {
		s.cw = client
	}
}

// InsightWithLogs sets the CloudWatch Logs client
func InsightWithLogs(client CloudWatchLogsAPI) InsightServiceOption {
	return func(s *InsightService) {
		s.logs = client
	}
}

// InsightWithBedrockClient sets the Bedrock runtime client
func InsightWithBedrockClient(client BedrockInvoker) InsightServiceOption {
	return func(s *InsightService) {
		s.bedrock = client
	}
}

// InsightWithModelID overrides the Bedrock model
func InsightWithModelID(modelID string) InsightServiceOption {
	return func(s *InsightService) {
		s.modelID = modelID
	}
}

// NewInsightService creates a new insight service
func NewInsightService(opts ...InsightServiceOption) *InsightService {
	s := &InsightService{
		modelID: os.Getenv("BEDROCK_MODEL_ID"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MetricSpec names one CloudWatch metric to analyze.
type MetricSpec struct {
	Namespace  string            `json:"Namespace"`
	MetricName string            `json:"MetricName"`
	Dimensions []MetricDimension `json:"Dimensions"`
}

// MetricDimension is a CloudWatch dimension name/value pair.
type MetricDimension struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// AnalysisParams configures one analysis run.
type AnalysisParams struct {
	Metrics      []MetricSpec `json:"metrics"`
	TimeRange    string       `json:"timeRange"`    // "1h", "24h" or "7d"
	AnalysisType string       `json:"analysisType"` // "summary", "anomaly" or "logs"
	LogGroup     string       `json:"logGroup"`     // used when AnalysisType is "logs"
}

// MetricSummary is the condensed statistics for one metric over the window.
type MetricSummary struct {
	Metric         string  `json:"metric"`
	Average        float64 `json:"average"`
	Maximum        float64 `json:"maximum"`
	Minimum        float64 `json:"minimum"`
	DatapointCount int     `json:"datapoint_count"`
}

// AnalysisReport is the result of one analysis run.
type AnalysisReport struct {
	Analysis  string          `json:"analysis"`
	Metrics   []MetricSummary `json:"metricsData"`
	Timestamp time.Time       `json:"timestamp"`
}

var defaultMetrics = []MetricSpec{
	{Namespace: "AWS/EC2", MetricName: "CPUUtilization"},
	{Namespace: "AWS/Lambda", MetricName: "Duration"},
}

// Analyze fetches the requested metrics (and logs, for log analysis),
// summarizes them and asks the model for an assessment. Metric fetch
// failures for individual metrics are logged and skipped; a model failure
// fails the run with an upstream error.
func (s *InsightService) Analyze(ctx context.Context, params AnalysisParams) (*AnalysisReport, error) {
	summaries, err := s.FetchMetrics(ctx, params)
	if err != nil {
		return nil, err
	}

	var logLines []string
	if params.AnalysisType == "logs" && params.LogGroup != "" {
		logLines, err = s.FetchLogEvents(ctx, params.LogGroup, params.TimeRange)
		if err != nil {
			// Analysis can proceed on metrics alone.
			log.Printf("Warning: failed to fetch log events: %v", err)
		}
	}

	prompt, err := buildAnalysisPrompt(summaries, logLines, params.AnalysisType)
	if err != nil {
		return nil, err
	}

	analysis, err := invokeClaude(ctx, s.bedrock, s.modelID, prompt, 1000)
	if err != nil {
		return nil, err
	}

	return &AnalysisReport{
		Analysis:  analysis,
		Metrics:   summaries,
		Timestamp: time.Now().UTC(),
	}, nil
}

// FetchMetrics pulls statistics for each configured metric over the time
// range and condenses them. Metrics that cannot be fetched are skipped.
func (s *InsightService) FetchMetrics(ctx context.Context, params AnalysisParams) ([]MetricSummary, error) {
	start, end, period := resolveTimeRange(params.TimeRange)

	specs := params.Metrics
	if len(specs) == 0 {
		specs = defaultMetrics
	}

	var summaries []MetricSummary
	for _, spec := range specs {
		dimensions := make([]cwtypes.Dimension, 0, len(spec.Dimensions))
		for _, d := range spec.Dimensions {
			dimensions = append(dimensions, cwtypes.Dimension{
				Name:  aws.String(d.Name),
				Value: aws.String(d.Value),
			})
		}

		out, err := s.cw.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
			Namespace:  aws.String(spec.Namespace),
			MetricName: aws.String(spec.MetricName),
			Dimensions: dimensions,
			StartTime:  aws.Time(start),
			EndTime:    aws.Time(end),
			Period:     aws.Int32(period),
			Statistics: []cwtypes.Statistic{
				cwtypes.StatisticAverage,
				cwtypes.StatisticMaximum,
				cwtypes.StatisticMinimum,
			},
		})
		if err != nil {
			log.Printf("Warning: could not fetch metric %s/%s: %v", spec.Namespace, spec.MetricName, err)
			continue
		}

		if summary, ok := summarizeDatapoints(spec.Namespace+"/"+spec.MetricName, out.Datapoints); ok {
			summaries = append(summaries, summary)
		}
	}
	return summaries, nil
}

func summarizeDatapoints(metric string, datapoints []cwtypes.Datapoint) (MetricSummary, bool) {
	var sum, max, min float64
	count := 0
	for _, dp := range datapoints {
		if dp.Average == nil {
			continue
		}
		v := *dp.Average
		if count == 0 {
			max, min = v, v
		} else {
			if v > max {
				max = v
			}
			if v < min {
				min = v
			}
		}
		sum += v
		count++
	}
	if count == 0 {
		return MetricSummary{}, false
	}
	return MetricSummary{
		Metric:         metric,
		Average:        sum / float64(count),
		Maximum:        max,
		Minimum:        min,
		DatapointCount: count,
	}, true
}

// FetchLogEvents returns recent log messages from the group, newest last,
// capped at 100 events.
func (s *InsightService) FetchLogEvents(ctx context.Context, logGroup string, timeRange string) ([]string, error) {
	start, end, _ := resolveTimeRange(timeRange)

	out, err := s.logs.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(logGroup),
		StartTime:    aws.Int64(start.UnixMilli()),
		EndTime:      aws.Int64(end.UnixMilli()),
		Limit:        aws.Int32(100),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}

	lines := make([]string, 0, len(out.Events))
	for _, event := range out.Events {
		if event.Message != nil {
			lines = append(lines, strings.TrimSpace(*event.Message))
		}
	}
	return lines, nil
}

func resolveTimeRange(timeRange string) (time.Time, time.Time, int32) {
	end := time.Now().UTC()
	switch timeRange {
	case "24h":
		return end.Add(-24 * time.Hour), end, 3600
	case "7d":
		return end.Add(-7 * 24 * time.Hour), end, 86400
	default: // "1h"
		return end.Add(-time.Hour), end, 300
	}
}

func buildAnalysisPrompt(summaries []MetricSummary, logLines []string, analysisType string) (string, error) {
	encoded, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode metric summary: %w", err)
	}

	var b strings.Builder
	switch analysisType {
	case "anomaly":
		fmt.Fprintf(&b, `Please analyze the following CloudWatch metrics data for anomalies:

Metrics Data:
%s

Please identify:
1. Any unusual patterns or spikes
2. Metrics that are outside normal ranges
3. Potential root causes
4. Recommended actions

Focus on anomaly detection and alerting.`, encoded)
	case "logs":
		fmt.Fprintf(&b, `Please analyze the following CloudWatch metrics and recent log excerpts:

Metrics Data:
%s

Recent Log Events:
%s

Please identify errors, warning trends and anything that needs operator attention. Keep the response concise but informative.`, encoded, strings.Join(logLines, "\n"))
	case "summary":
		fmt.Fprintf(&b, `Please analyze the following CloudWatch metrics data and provide a comprehensive summary:

Metrics Data:
%s

Please provide:
1. Overall health assessment
2. Notable trends or patterns
3. Potential issues or concerns
4. Recommendations for optimization

Keep the response concise but informative.`, encoded)
	default:
		fmt.Fprintf(&b, `Please analyze the following CloudWatch metrics data:

Metrics Data:
%s

Provide insights and recommendations based on the data.`, encoded)
	}
	return b.String(), nil
}

var widgetTemplate = template.Must(template.New("widget").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; margin: 10px; background-color: #f5f5f5; }
  .container { background-color: white; border-radius: 8px; padding: 15px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
  .header { color: #232f3e; font-size: 18px; font-weight: bold; margin-bottom: 15px; border-bottom: 2px solid #ff9900; padding-bottom: 5px; }
  .analysis { background-color: #f8f9fa; border-left: 4px solid #007dbc; padding: 10px; margin: 10px 0; border-radius: 4px; white-space: pre-wrap; }
  .metric-item { margin: 5px 0; padding: 5px; background-color: #f0f0f0; border-radius: 3px; font-size: 12px; color: #666; }
  .timestamp { font-size: 10px; color: #999; text-align: right; margin-top: 10px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">Bedrock Dashboard Analysis</div>
  <div class="analysis">{{.Analysis}}</div>
  <div class="metrics-summary">
    <strong>Analyzed Metrics:</strong>
    {{- if .Metrics}}
    {{- range .Metrics}}
    <div class="metric-item"><strong>{{.Metric}}</strong>: Avg {{printf "%.2f" .Average}} ({{.DatapointCount}} datapoints)</div>
    {{- end}}
    {{- else}}
    <div class="metric-item">No metrics data available</div>
    {{- end}}
  </div>
  <div class="timestamp">Last updated: {{.Timestamp.Format "2006-01-02 15:04:05"}} UTC</div>
</div>
</body>
</html>`))

// RenderWidgetHTML renders the report for display inside a CloudWatch
// custom widget.
func RenderWidgetHTML(report *AnalysisReport) (string, error) {
	var b strings.Builder
	if err := widgetTemplate.Execute(&b, report); err != nil {
		return "", fmt.Errorf("failed to render widget: %w", err)
	}
	return b.String(), nil
}

// WidgetDescription is returned for CloudWatch custom widget describe
// calls.
func WidgetDescription() map[string]any {
	return map[string]any{
		"name":        "Bedrock Dashboard Analyzer",
		"description": "Analyzes CloudWatch dashboard metrics using AWS Bedrock",
		"parameters": map[string]any{
			"metrics": map[string]any{
				"type":        "array",
				"description": "List of CloudWatch metrics to analyze",
				"default":     []any{},
			},
			"timeRange": map[string]any{
				"type":        "string",
				"description": `Time range for analysis (e.g., "1h", "24h", "7d")`,
				"default":     "1h",
			},
			"analysisType": map[string]any{
				"type":        "string",
				"description": "Type of analysis to perform",
				"default":     "summary",
			},
		},
	}
}
