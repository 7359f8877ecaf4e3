package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"filenet-backend/service"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockBedrock implements service.BedrockInvoker.
type mockBedrock struct {
	mock.Mock
}

func (m *mockBedrock) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*bedrockruntime.InvokeModelOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

// claudeResponse builds a Bedrock response body with the given text.
func claudeResponse(t *testing.T, text string) *bedrockruntime.InvokeModelOutput {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"content": []map[string]string{{"text": text}},
	})
	require.NoError(t, err)
	return &bedrockruntime.InvokeModelOutput{Body: body}
}

func TestGenerateSQL(t *testing.T) {
	bedrock := new(mockBedrock)
	svc := service.NewSQLGenService(service.SQLGenWithBedrockClient(bedrock))

	bedrock.On("InvokeModel", mock.Anything, mock.Anything).
		Return(claudeResponse(t, "SELECT count(*) FROM files"), nil)

	sql, err := svc.GenerateSQL(context.Background(), "how many files are there", "Table: files")
	require.NoError(t, err)
	assert.Equal(t, "SELECT count(*) FROM files", sql)
	bedrock.AssertExpectations(t)
}

func TestGenerateSQLStripsMarkdownFences(t *testing.T) {
	bedrock := new(mockBedrock)
	svc := service.NewSQLGenService(service.SQLGenWithBedrockClient(bedrock))

	bedrock.On("InvokeModel", mock.Anything, mock.Anything).
		Return(claudeResponse(t, "```sql\nSELECT id FROM users;\n```"), nil)

	sql, err := svc.GenerateSQL(context.Background(), "list user ids", "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM users", sql)
}

func TestGenerateSQLRejectsNonSelect(t *testing.T) {
	tests := []string{
		"DROP TABLE users",
		"DELETE FROM files WHERE 1=1",
		"UPDATE users SET is_admin = true",
		"INSERT INTO users VALUES (1)",
		"here is your query: SELECT 1",
	}

	for _, generated := range tests {
		t.Run(generated, func(t *testing.T) {
			bedrock := new(mockBedrock)
			svc := service.NewSQLGenService(service.SQLGenWithBedrockClient(bedrock))

			bedrock.On("InvokeModel", mock.Anything, mock.Anything).
				Return(claudeResponse(t, generated), nil)

			_, err := svc.GenerateSQL(context.Background(), "anything", "")
			assert.ErrorIs(t, err, service.ErrNotSelect)
		})
	}
}

func TestGenerateSQLPromptContents(t *testing.T) {
	bedrock := new(mockBedrock)
	svc := service.NewSQLGenService(service.SQLGenWithBedrockClient(bedrock))

	var captured *bedrockruntime.InvokeModelInput
	bedrock.On("InvokeModel", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*bedrockruntime.InvokeModelInput)
		}).
		Return(claudeResponse(t, "SELECT 1"), nil)

	_, err := svc.GenerateSQL(context.Background(), "count active users", "Table: users\n  - id (uuid)")
	require.NoError(t, err)
	require.NotNil(t, captured)

	var req struct {
		AnthropicVersion string `json:"anthropic_version"`
		MaxTokens        int    `json:"max_tokens"`
		Messages         []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(captured.Body, &req))

	assert.Equal(t, "bedrock-2023-05-31", req.AnthropicVersion)
	assert.Equal(t, 1000, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "count active users")
	assert.Contains(t, req.Messages[0].Content, "Table: users")
	assert.Contains(t, req.Messages[0].Content, "Only generate SELECT statements")
}

func TestGenerateSQLUpstreamFailure(t *testing.T) {
	bedrock := new(mockBedrock)
	svc := service.NewSQLGenService(service.SQLGenWithBedrockClient(bedrock))

	bedrock.On("InvokeModel", mock.Anything, mock.Anything).
		Return(nil, errors.New("throttled"))

	_, err := svc.GenerateSQL(context.Background(), "anything", "")
	assert.ErrorIs(t, err, service.ErrUpstreamFailure)
}

func TestGenerateSQLEmptyModelResponse(t *testing.T) {
	bedrock := new(mockBedrock)
	svc := service.NewSQLGenService(service.SQLGenWithBedrockClient(bedrock))

	body, _ := json.Marshal(map[string]any{"content": []any{}})
	bedrock.On("InvokeModel", mock.Anything, mock.Anything).
		Return(&bedrockruntime.InvokeModelOutput{Body: body}, nil)

	_, err := svc.GenerateSQL(context.Background(), "anything", "")
	assert.ErrorIs(t, err, service.ErrUpstreamFailure)
}

func TestGenerateSQLModelIDOverride(t *testing.T) {
	bedrock := new(mockBedrock)
	svc := service.NewSQLGenService(
		service.SQLGenWithBedrockClient(bedrock),
		service.SQLGenWithModelID("anthropic.claude-3-haiku-20240307-v1:0"),
	)

	var captured *bedrockruntime.InvokeModelInput
	bedrock.On("InvokeModel", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*bedrockruntime.InvokeModelInput)
		}).
		Return(claudeResponse(t, "SELECT 1"), nil)

	_, err := svc.GenerateSQL(context.Background(), "anything", "")
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", *captured.ModelId)
}

func TestTranslateRequiresQuery(t *testing.T) {
	svc := service.NewSQLGenService(service.SQLGenWithBedrockClient(new(mockBedrock)))

	for _, query := range []string{"", "   ", "\n\t"} {
		_, err := svc.Translate(context.Background(), query)
		assert.ErrorIs(t, err, service.ErrInvalidInput, fmt.Sprintf("query %q", query))
	}
}
