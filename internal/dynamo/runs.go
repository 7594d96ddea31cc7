package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"genaiapps/internal/models"
)

const (
	skPrefixRun = "RUN#"
	ttlDuration = 30 * 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by RunSink.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// RunSink stores trace records in a single DynamoDB table keyed by project.
type RunSink struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

func New(api dynamodbAPI, tableName string) (*RunSink, error) {
	if api == nil {
		return nil, errors.New("dynamo: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("dynamo: table name must not be empty")
	}
	return &RunSink{api: api, tableName: tableName, now: time.Now}, nil
}

func projectPK(project string) string {
	return "PROJECT#" + project
}

// runSK sorts runs chronologically inside a project partition.
func runSK(rec *models.RunRecord) string {
	return skPrefixRun + rec.StartedAt.UTC().Format(time.RFC3339Nano) + "#" + rec.ID
}

// Write persists rec. A run ID is written at most once.
func (s *RunSink) Write(ctx context.Context, rec *models.RunRecord) error {
	if rec == nil {
		return nil
	}
	if rec.ID == "" {
		return errors.New("dynamo: run id is required")
	}
	item, err := s.runItem(rec)
	if err != nil {
		return err
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("dynamo: put run %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit runs of project, newest first.
func (s *RunSink) Recent(ctx context.Context, project string, limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: projectPK(project)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixRun},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: query runs: %w", err)
	}
	runs := make([]*models.RunRecord, 0, len(out.Items))
	for _, item := range out.Items {
		rec, err := itemToRun(item)
		if err != nil {
			return nil, fmt.Errorf("dynamo: decode run: %w", err)
		}
		rec.Project = project
		runs = append(runs, rec)
	}
	return runs, nil
}

func (s *RunSink) runItem(rec *models.RunRecord) (map[string]types.AttributeValue, error) {
	inputs, err := json.Marshal(rec.Inputs)
	if err != nil {
		return nil, fmt.Errorf("dynamo: marshal inputs: %w", err)
	}
	prompt := rec.Prompt
	if prompt == nil {
		prompt = []models.Message{}
	}
	promptJSON, err := json.Marshal(prompt)
	if err != nil {
		return nil, fmt.Errorf("dynamo: marshal prompt: %w", err)
	}
	return map[string]types.AttributeValue{
		"PK":                &types.AttributeValueMemberS{Value: projectPK(rec.Project)},
		"SK":                &types.AttributeValueMemberS{Value: runSK(rec)},
		"id":                &types.AttributeValueMemberS{Value: rec.ID},
		"pipeline":          &types.AttributeValueMemberS{Value: rec.Pipeline},
		"inputs":            &types.AttributeValueMemberS{Value: string(inputs)},
		"prompt":            &types.AttributeValueMemberS{Value: string(promptJSON)},
		"output":            &types.AttributeValueMemberS{Value: rec.Output},
		"error":             &types.AttributeValueMemberS{Value: rec.Error},
		"started_at":        &types.AttributeValueMemberS{Value: rec.StartedAt.UTC().Format(time.RFC3339Nano)},
		"latency_ms":        &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.Latency().Milliseconds(), 10)},
		"prompt_tokens":     &types.AttributeValueMemberN{Value: strconv.Itoa(rec.PromptTokens)},
		"completion_tokens": &types.AttributeValueMemberN{Value: strconv.Itoa(rec.CompletionTokens)},
		"ttl":               &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Add(ttlDuration).Unix(), 10)},
	}, nil
}

func itemToRun(item map[string]types.AttributeValue) (*models.RunRecord, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return nil, err
	}
	pipeline, err := strAttr(item, "pipeline")
	if err != nil {
		return nil, err
	}
	started, err := strAttr(item, "started_at")
	if err != nil {
		return nil, err
	}
	startedAt, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	rec := &models.RunRecord{ID: id, Pipeline: pipeline, StartedAt: startedAt, EndedAt: startedAt}
	if raw, _ := strAttr(item, "inputs"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Inputs); err != nil {
			return nil, fmt.Errorf("decode inputs: %w", err)
		}
	}
	if raw, _ := strAttr(item, "prompt"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Prompt); err != nil {
			return nil, fmt.Errorf("decode prompt: %w", err)
		}
	}
	rec.Output, _ = strAttr(item, "output")
	rec.Error, _ = strAttr(item, "error")
	if ms, err := intAttr(item, "latency_ms"); err == nil {
		rec.EndedAt = startedAt.Add(time.Duration(ms) * time.Millisecond)
	}
	if n, err := intAttr(item, "prompt_tokens"); err == nil {
		rec.PromptTokens = int(n)
	}
	if n, err := intAttr(item, "completion_tokens"); err == nil {
		rec.CompletionTokens = int(n)
	}
	return rec, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute %q is not a number", key)
	}
	return strconv.ParseInt(n.Value, 10, 64)
}
