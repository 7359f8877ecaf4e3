package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"filenet-backend/service"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/jackc/pgx/v5/pgxpool"
)

var corsHeaders = map[string]string{
	"Content-Type":                 "application/json",
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type",
	"Access-Control-Allow-Methods": "POST, OPTIONS",
}

type queryRequest struct {
	Query string `json:"query"`
}

type handler struct {
	sqlgen *service.SQLGenService
}

func (h *handler) handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod == http.MethodOptions {
		return response(http.StatusOK, map[string]any{"message": "ok"}), nil
	}

	var body queryRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil || body.Query == "" {
		return response(http.StatusBadRequest, map[string]any{
			"error": "Request body must be JSON with a non-empty \"query\" field",
		}), nil
	}

	result, err := h.sqlgen.Translate(ctx, body.Query)
	if err != nil {
		log.Printf("Translation failed: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrNotSelect) {
			status = http.StatusBadRequest
		}
		return response(status, map[string]any{"error": err.Error()}), nil
	}

	return response(http.StatusOK, result), nil
}

func response(status int, payload any) events.APIGatewayProxyResponse {
	encoded, err := json.Marshal(payload)
	if err != nil {
		encoded = []byte(`{"error":"failed to encode response"}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    corsHeaders,
		Body:       string(encoded),
	}
}

// dbSecret is the Secrets Manager payload shape for RDS credentials.
type dbSecret struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"dbname"`
}

// resolveConnString prefers a Secrets Manager secret named by
// DB_SECRET_NAME and falls back to DATABASE_URL.
func resolveConnString(ctx context.Context, cfg aws.Config) (string, error) {
	secretName := os.Getenv("DB_SECRET_NAME")
	if secretName == "" {
		if connString := os.Getenv("DATABASE_URL"); connString != "" {
			return connString, nil
		}
		return "", fmt.Errorf("neither DB_SECRET_NAME nor DATABASE_URL is set")
	}

	client := secretsmanager.NewFromConfig(cfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s: %w", secretName, err)
	}

	var secret dbSecret
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &secret); err != nil {
		return "", fmt.Errorf("failed to decode secret %s: %w", secretName, err)
	}
	if secret.Port == 0 {
		secret.Port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		secret.Username, secret.Password, secret.Host, secret.Port, secret.DBName), nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	connString, err := resolveConnString(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to resolve database credentials: %v", err)
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlgen := service.NewSQLGenService(
		service.SQLGenWithDatabase(pool),
		service.SQLGenWithBedrockClient(bedrockruntime.NewFromConfig(cfg)),
	)

	h := &handler{sqlgen: sqlgen}
	lambda.Start(h.handle)
}
