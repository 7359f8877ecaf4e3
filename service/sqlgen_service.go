package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotSelect is returned when the model produced anything other than a
// read-only SELECT statement.
var ErrNotSelect = errors.New("generated query is not a SELECT statement")

// SQLGenService translates natural-language questions into SQL against
// the application database, executes them and returns the rows. Only
// SELECT statements are ever executed.
type SQLGenService struct {
	db      *pgxpool.Pool
	bedrock BedrockInvoker
	modelID string
}

// SQLGenServiceOption is a functional option for SQLGenService
type SQLGenServiceOption func(*SQLGenService)

// SQLGenWithDatabase sets the database pool
func SQLGenWithDatabase(db *pgxpool.Pool) SQLGenServiceOption {
	return func(s *SQLGenService) {
		s.db = db
	}
}

// SQLGenWithBedrockClient sets the Bedrock runtime client
func SQLGenWithBedrockClient(client BedrockInvoker) SQLGenServiceOption {
	return func(s *SQLGenService) {
		s.bedrock = client
	}
}

// SQLGenWithModelID overrides the Bedrock model
func SQLGenWithModelID(modelID string) SQLGenServiceOption {
	return func(s *SQLGenService) {
		s.modelID = modelID
	}
}

// NewSQLGenService creates a new NL-to-SQL service
func NewSQLGenService(opts ...SQLGenServiceOption) *SQLGenService {
	s := &SQLGenService{
		modelID: os.Getenv("BEDROCK_MODEL_ID"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryResult is the response for a translated query.
type QueryResult struct {
	OriginalQuery string    `json:"original_query"`
	GeneratedSQL  string    `json:"generated_sql"`
	Results       QueryRows `json:"results"`
}

// QueryRows holds the rows a generated query produced.
type QueryRows struct {
	Success  bool             `json:"success"`
	RowCount int              `json:"row_count"`
	Columns  []string         `json:"columns"`
	Data     []map[string]any `json:"data"`
	Error    string           `json:"error,omitempty"`
}

// Translate runs the full pipeline: introspect schema, generate SQL via
// Bedrock, validate, execute. Execution failures are reported inside the
// result rather than failing the request; a bad generated query is a
// normal outcome.
func (s *SQLGenService) Translate(ctx context.Context, userQuery string) (*QueryResult, error) {
	if strings.TrimSpace(userQuery) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	schemaInfo, err := s.DescribeSchema(ctx)
	if err != nil {
		// Schema context is best effort; the model can still try.
		schemaInfo = "Database schema unavailable"
	}

	sqlQuery, err := s.GenerateSQL(ctx, userQuery, schemaInfo)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{
		OriginalQuery: userQuery,
		GeneratedSQL:  sqlQuery,
		Results:       s.execute(ctx, sqlQuery),
	}
	return result, nil
}

// DescribeSchema renders the public tables, columns and primary keys as a
// text block for the model prompt.
func (s *SQLGenService) DescribeSchema(ctx context.Context) (string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return "", err
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("PostgreSQL database schema:\n")

	for _, table := range tables {
		fmt.Fprintf(&b, "\nTable: %s\n", table)

		pks, err := s.primaryKeyColumns(ctx, table)
		if err != nil {
			return "", err
		}

		colRows, err := s.db.Query(ctx, `
			SELECT column_name, data_type, COALESCE(character_maximum_length, 0), is_nullable
			FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1
			ORDER BY ordinal_position`, table)
		if err != nil {
			return "", fmt.Errorf("failed to describe table %s: %w", table, err)
		}
		for colRows.Next() {
			var name, dataType, nullable string
			var maxLen int
			if err := colRows.Scan(&name, &dataType, &maxLen, &nullable); err != nil {
				colRows.Close()
				return "", err
			}
			typeInfo := dataType
			if maxLen > 0 {
				typeInfo = fmt.Sprintf("%s(%d)", dataType, maxLen)
			}
			nullInfo := "NULL"
			if nullable == "NO" {
				nullInfo = "NOT NULL"
			}
			pkInfo := ""
			if pks[name] {
				pkInfo = " PRIMARY KEY"
			}
			fmt.Fprintf(&b, "  - %s (%s) %s%s\n", name, typeInfo, nullInfo, pkInfo)
		}
		colRows.Close()
		if err := colRows.Err(); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func (s *SQLGenService) primaryKeyColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.Query(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
		WHERE tc.table_schema = 'public'
			AND tc.table_name = $1
			AND tc.constraint_type = 'PRIMARY KEY'`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pks := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		pks[name] = true
	}
	return pks, rows.Err()
}

// GenerateSQL asks the model for a SELECT statement and validates the
// answer. Markdown fences are stripped; anything that is not a SELECT is
// rejected.
func (s *SQLGenService) GenerateSQL(ctx context.Context, userQuery string, schemaInfo string) (string, error) {
	prompt := buildSQLPrompt(userQuery, schemaInfo)

	raw, err := invokeClaude(ctx, s.bedrock, s.modelID, prompt, 1000)
	if err != nil {
		return "", err
	}

	sqlQuery := sanitizeSQL(raw)
	if !strings.HasPrefix(strings.ToUpper(sqlQuery), "SELECT") {
		return "", fmt.Errorf("%w: %q", ErrNotSelect, sqlQuery)
	}
	return sqlQuery, nil
}

func buildSQLPrompt(userQuery string, schemaInfo string) string {
	return fmt.Sprintf(`You are an expert PostgreSQL developer. Given the following database schema and a natural language query, generate a precise PostgreSQL SELECT statement. Only return the SQL query, no explanations.

%s

Natural Language Query: %s

Rules:
1. Only generate SELECT statements (no INSERT, UPDATE, DELETE, DROP, etc.)
2. Use proper PostgreSQL syntax
3. Be conservative - if the query is ambiguous, pick the most literal reading
4. Use PostgreSQL functions when appropriate (e.g., NOW(), COALESCE, date_trunc)
5. Include appropriate WHERE clauses, JOINs, and LIMIT for bounding results
6. Return only the SQL query without any markdown formatting or explanations

PostgreSQL Query:`, schemaInfo, userQuery)
}

func sanitizeSQL(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```sql", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), ";")
	return strings.TrimSpace(cleaned)
}

func (s *SQLGenService) execute(ctx context.Context, sqlQuery string) QueryRows {
	rows, err := s.db.Query(ctx, sqlQuery)
	if err != nil {
		return QueryRows{Error: err.Error()}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var data []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return QueryRows{Columns: columns, Error: err.Error()}
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return QueryRows{Columns: columns, Error: err.Error()}
	}

	return QueryRows{
		Success:  true,
		RowCount: len(data),
		Columns:  columns,
		Data:     data,
	}
}

// normalizeValue keeps query results JSON-serializable.
func normalizeValue(v any) any {
	switch typed := v.(type) {
	case []byte:
		return string(typed)
	case fmt.Stringer:
		return typed.String()
	default:
		return v
	}
}
