package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"filenet-backend/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockCloudWatch implements service.CloudWatchAPI.
type mockCloudWatch struct {
	mock.Mock
}

func (m *mockCloudWatch) GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*cloudwatch.GetMetricStatisticsOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockCloudWatchLogs implements service.CloudWatchLogsAPI.
type mockCloudWatchLogs struct {
	mock.Mock
}

func (m *mockCloudWatchLogs) FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*cloudwatchlogs.FilterLogEventsOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func datapoints(averages ...float64) []cwtypes.Datapoint {
	dps := make([]cwtypes.Datapoint, 0, len(averages))
	for _, avg := range averages {
		dps = append(dps, cwtypes.Datapoint{Average: aws.Float64(avg)})
	}
	return dps
}

func TestFetchMetricsSummarizes(t *testing.T) {
	cw := new(mockCloudWatch)
	svc := service.NewInsightService(service.InsightWithCloudWatch(cw))

	cw.On("GetMetricStatistics", mock.Anything, mock.MatchedBy(func(in *cloudwatch.GetMetricStatisticsInput) bool {
		return *in.MetricName == "CPUUtilization"
	})).Return(&cloudwatch.GetMetricStatisticsOutput{
		Datapoints: datapoints(10, 30, 20),
	}, nil)

	summaries, err := svc.FetchMetrics(context.Background(), service.AnalysisParams{
		Metrics: []service.MetricSpec{
			{Namespace: "AWS/EC2", MetricName: "CPUUtilization"},
		},
		TimeRange: "1h",
	})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, "AWS/EC2/CPUUtilization", summaries[0].Metric)
	assert.InDelta(t, 20.0, summaries[0].Average, 0.0001)
	assert.Equal(t, 30.0, summaries[0].Maximum)
	assert.Equal(t, 10.0, summaries[0].Minimum)
	assert.Equal(t, 3, summaries[0].DatapointCount)
}

func TestFetchMetricsTimeRangePeriods(t *testing.T) {
	tests := []struct {
		timeRange string
		period    int32
	}{
		{"1h", 300},
		{"24h", 3600},
		{"7d", 86400},
		{"bogus", 300},
	}

	for _, tt := range tests {
		t.Run(tt.timeRange, func(t *testing.T) {
			cw := new(mockCloudWatch)
			svc := service.NewInsightService(service.InsightWithCloudWatch(cw))

			var captured *cloudwatch.GetMetricStatisticsInput
			cw.On("GetMetricStatistics", mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) {
					captured = args.Get(1).(*cloudwatch.GetMetricStatisticsInput)
				}).
				Return(&cloudwatch.GetMetricStatisticsOutput{}, nil)

			_, err := svc.FetchMetrics(context.Background(), service.AnalysisParams{
				Metrics:   []service.MetricSpec{{Namespace: "AWS/EC2", MetricName: "CPUUtilization"}},
				TimeRange: tt.timeRange,
			})
			require.NoError(t, err)
			require.NotNil(t, captured)
			assert.Equal(t, tt.period, *captured.Period)
		})
	}
}

func TestFetchMetricsSkipsFailedMetric(t *testing.T) {
	cw := new(mockCloudWatch)
	svc := service.NewInsightService(service.InsightWithCloudWatch(cw))

	cw.On("GetMetricStatistics", mock.Anything, mock.MatchedBy(func(in *cloudwatch.GetMetricStatisticsInput) bool {
		return *in.MetricName == "CPUUtilization"
	})).Return(nil, errors.New("access denied"))
	cw.On("GetMetricStatistics", mock.Anything, mock.MatchedBy(func(in *cloudwatch.GetMetricStatisticsInput) bool {
		return *in.MetricName == "Duration"
	})).Return(&cloudwatch.GetMetricStatisticsOutput{
		Datapoints: datapoints(120),
	}, nil)

	summaries, err := svc.FetchMetrics(context.Background(), service.AnalysisParams{
		Metrics: []service.MetricSpec{
			{Namespace: "AWS/EC2", MetricName: "CPUUtilization"},
			{Namespace: "AWS/Lambda", MetricName: "Duration"},
		},
	})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "AWS/Lambda/Duration", summaries[0].Metric)
}

func TestFetchMetricsDefaults(t *testing.T) {
	cw := new(mockCloudWatch)
	svc := service.NewInsightService(service.InsightWithCloudWatch(cw))

	var names []string
	cw.On("GetMetricStatistics", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			in := args.Get(1).(*cloudwatch.GetMetricStatisticsInput)
			names = append(names, *in.Namespace+"/"+*in.MetricName)
		}).
		Return(&cloudwatch.GetMetricStatisticsOutput{}, nil)

	_, err := svc.FetchMetrics(context.Background(), service.AnalysisParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"AWS/EC2/CPUUtilization", "AWS/Lambda/Duration"}, names)
}

func TestAnalyze(t *testing.T) {
	cw := new(mockCloudWatch)
	bedrock := new(mockBedrock)
	svc := service.NewInsightService(
		service.InsightWithCloudWatch(cw),
		service.InsightWithBedrockClient(bedrock),
	)

	cw.On("GetMetricStatistics", mock.Anything, mock.Anything).
		Return(&cloudwatch.GetMetricStatisticsOutput{Datapoints: datapoints(50)}, nil)

	var captured []byte
	bedrock.On("InvokeModel", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*bedrockruntime.InvokeModelInput).Body
		}).
		Return(claudeResponse(t, "All systems nominal."), nil)

	report, err := svc.Analyze(context.Background(), service.AnalysisParams{
		Metrics:      []service.MetricSpec{{Namespace: "AWS/EC2", MetricName: "CPUUtilization"}},
		TimeRange:    "1h",
		AnalysisType: "summary",
	})
	require.NoError(t, err)

	assert.Equal(t, "All systems nominal.", report.Analysis)
	require.Len(t, report.Metrics, 1)
	assert.WithinDuration(t, time.Now().UTC(), report.Timestamp, time.Minute)

	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(captured, &req))
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "comprehensive summary")
	assert.Contains(t, req.Messages[0].Content, "AWS/EC2/CPUUtilization")
}

func TestAnalyzeWithLogs(t *testing.T) {
	cw := new(mockCloudWatch)
	logs := new(mockCloudWatchLogs)
	bedrock := new(mockBedrock)
	svc := service.NewInsightService(
		service.InsightWithCloudWatch(cw),
		service.InsightWithLogs(logs),
		service.InsightWithBedrockClient(bedrock),
	)

	cw.On("GetMetricStatistics", mock.Anything, mock.Anything).
		Return(&cloudwatch.GetMetricStatisticsOutput{Datapoints: datapoints(5)}, nil)
	logs.On("FilterLogEvents", mock.Anything, mock.MatchedBy(func(in *cloudwatchlogs.FilterLogEventsInput) bool {
		return *in.LogGroupName == "/aws/lambda/filenet" && *in.Limit == 100
	})).Return(&cloudwatchlogs.FilterLogEventsOutput{
		Events: []cwltypes.FilteredLogEvent{
			{Message: aws.String("ERROR timeout connecting to database")},
			{Message: aws.String("retrying in 5s")},
		},
	}, nil)

	var captured []byte
	bedrock.On("InvokeModel", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*bedrockruntime.InvokeModelInput).Body
		}).
		Return(claudeResponse(t, "Database timeouts detected."), nil)

	report, err := svc.Analyze(context.Background(), service.AnalysisParams{
		Metrics:      []service.MetricSpec{{Namespace: "AWS/Lambda", MetricName: "Errors"}},
		TimeRange:    "24h",
		AnalysisType: "logs",
		LogGroup:     "/aws/lambda/filenet",
	})
	require.NoError(t, err)
	assert.Equal(t, "Database timeouts detected.", report.Analysis)

	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(captured, &req))
	assert.Contains(t, req.Messages[0].Content, "ERROR timeout connecting to database")
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	cw := new(mockCloudWatch)
	bedrock := new(mockBedrock)
	svc := service.NewInsightService(
		service.InsightWithCloudWatch(cw),
		service.InsightWithBedrockClient(bedrock),
	)

	cw.On("GetMetricStatistics", mock.Anything, mock.Anything).
		Return(&cloudwatch.GetMetricStatisticsOutput{Datapoints: datapoints(1)}, nil)
	bedrock.On("InvokeModel", mock.Anything, mock.Anything).
		Return(nil, errors.New("model unavailable"))

	_, err := svc.Analyze(context.Background(), service.AnalysisParams{
		Metrics: []service.MetricSpec{{Namespace: "AWS/EC2", MetricName: "CPUUtilization"}},
	})
	assert.ErrorIs(t, err, service.ErrUpstreamFailure)
}

func TestRenderWidgetHTML(t *testing.T) {
	report := &service.AnalysisReport{
		Analysis: "CPU usage is healthy.",
		Metrics: []service.MetricSummary{
			{Metric: "AWS/EC2/CPUUtilization", Average: 42.5, DatapointCount: 12},
		},
		Timestamp: time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC),
	}

	html, err := service.RenderWidgetHTML(report)
	require.NoError(t, err)

	assert.Contains(t, html, "CPU usage is healthy.")
	assert.Contains(t, html, "AWS/EC2/CPUUtilization")
	assert.Contains(t, html, "42.50")
	assert.Contains(t, html, "2026-08-23 10:30:00")
}

func TestRenderWidgetHTMLNoMetrics(t *testing.T) {
	html, err := service.RenderWidgetHTML(&service.AnalysisReport{
		Analysis:  "No data in the window.",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Contains(t, html, "No metrics data available")
}

func TestWidgetDescription(t *testing.T) {
	desc := service.WidgetDescription()

	assert.Equal(t, "Bedrock Dashboard Analyzer", desc["name"])
	params, ok := desc["parameters"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, params, "metrics")
	assert.Contains(t, params, "timeRange")
	assert.Contains(t, params, "analysisType")
}
