package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/entities"
	"mindmap-backend/domain/core/valueobjects"
	apperrors "mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	entityTypeMindMap = "MINDMAP"
	userKeyPrefix     = "USER#"
	mapKeyPrefix      = "MAP#"
)

// API is the part of the DynamoDB client the store and locker use
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// MindMapStore keeps one item per map in a single table:
// PK = USER#<owner>, SK = MAP#<mapId>
type MindMapStore struct {
	client    API
	tableName string
	metrics   *observability.Collector
	tracer    *observability.Tracer
	logger    *zap.Logger
}

// NewMindMapStore creates the store. metrics and tracer may be nil.
func NewMindMapStore(client API, tableName string, metrics *observability.Collector, tracer *observability.Tracer, logger *zap.Logger) *MindMapStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MindMapStore{
		client:    client,
		tableName: tableName,
		metrics:   metrics,
		tracer:    tracer,
		logger:    logger,
	}
}

// mindMapItem represents the DynamoDB item structure for a map
type mindMapItem struct {
	PK          string                  `dynamodbav:"PK"`
	SK          string                  `dynamodbav:"SK"`
	EntityType  string                  `dynamodbav:"EntityType"`
	MapID       string                  `dynamodbav:"MapID"`
	OwnerID     string                  `dynamodbav:"OwnerID"`
	Title       string                  `dynamodbav:"Title"`
	Description string                  `dynamodbav:"Description"`
	Nodes       []entities.NodeDocument `dynamodbav:"Nodes"`
	Edges       []entities.EdgeDocument `dynamodbav:"Edges"`
	NodeCount   int                     `dynamodbav:"NodeCount"`
	EdgeCount   int                     `dynamodbav:"EdgeCount"`
	CreatedAt   string                  `dynamodbav:"CreatedAt"`
	UpdatedAt   string                  `dynamodbav:"UpdatedAt"`
	Version     int                     `dynamodbav:"Version"`
}

func userKey(ownerID string) string { return userKeyPrefix + ownerID }

func mapKey(mapID valueobjects.MapID) string { return mapKeyPrefix + mapID.String() }

func itemKey(ownerID string, mapID valueobjects.MapID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userKey(ownerID)},
		"SK": &types.AttributeValueMemberS{Value: mapKey(mapID)},
	}
}

func toItem(m *aggregates.MindMap) mindMapItem {
	return mindMapItem{
		PK:          userKey(m.OwnerID),
		SK:          mapKey(m.MapID),
		EntityType:  entityTypeMindMap,
		MapID:       m.MapID.String(),
		OwnerID:     m.OwnerID,
		Title:       m.Title,
		Description: m.Description,
		Nodes:       m.Nodes,
		Edges:       m.Edges,
		NodeCount:   len(m.Nodes),
		EdgeCount:   len(m.Edges),
		CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   m.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Version:     m.Version,
	}
}

func (item mindMapItem) toMindMap() (*aggregates.MindMap, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid CreatedAt: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid UpdatedAt: %w", err)
	}
	m := &aggregates.MindMap{
		MapID:       valueobjects.MapID(item.MapID),
		OwnerID:     item.OwnerID,
		Title:       item.Title,
		Description: item.Description,
		Nodes:       item.Nodes,
		Edges:       item.Edges,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		Version:     item.Version,
	}
	if m.Nodes == nil {
		m.Nodes = []entities.NodeDocument{}
	}
	if m.Edges == nil {
		m.Edges = []entities.EdgeDocument{}
	}
	return m, nil
}

// Get returns one map, NotFound when the owner has no such map
func (s *MindMapStore) Get(ctx context.Context, ownerID string, mapID valueobjects.MapID) (*aggregates.MindMap, error) {
	var out *aggregates.MindMap
	err := s.observe(ctx, "GetMap", func(ctx context.Context) error {
		result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(s.tableName),
			Key:            itemKey(ownerID, mapID),
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			return apperrors.NewRemoteUnavailableError("dynamodb", err)
		}
		if result.Item == nil {
			return apperrors.NewNotFoundError("mind map " + mapID.String())
		}

		var item mindMapItem
		if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
			return apperrors.NewDatabaseError("unmarshal mind map", err)
		}
		out, err = item.toMindMap()
		if err != nil {
			return apperrors.NewDatabaseError("decode mind map", err)
		}
		return nil
	})
	return out, err
}

// ListByOwner returns every map of the owner, most recently updated first
func (s *MindMapStore) ListByOwner(ctx context.Context, ownerID string) ([]*aggregates.MindMap, error) {
	var maps []*aggregates.MindMap
	err := s.observe(ctx, "ListMaps", func(ctx context.Context) error {
		items, err := s.queryOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		maps = make([]*aggregates.MindMap, 0, len(items))
		for _, raw := range items {
			var item mindMapItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				s.logger.Warn("Skipping unreadable mind map item", zap.Error(err))
				continue
			}
			m, err := item.toMindMap()
			if err != nil {
				s.logger.Warn("Skipping unreadable mind map item", zap.String("mapID", item.MapID), zap.Error(err))
				continue
			}
			maps = append(maps, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(maps, func(i, j int) bool {
		if maps[i].UpdatedAt.Equal(maps[j].UpdatedAt) {
			return maps[i].MapID < maps[j].MapID
		}
		return maps[i].UpdatedAt.After(maps[j].UpdatedAt)
	})
	return maps, nil
}

// CountByOwner counts the owner's maps without reading them
func (s *MindMapStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.observe(ctx, "CountMaps", func(ctx context.Context) error {
		expr, err := ownerKeyExpression(ownerID)
		if err != nil {
			return err
		}
		var startKey map[string]types.AttributeValue
		for {
			result, err := s.client.Query(ctx, &dynamodb.QueryInput{
				TableName:                 aws.String(s.tableName),
				KeyConditionExpression:    expr.KeyCondition(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
				Select:                    types.SelectCount,
				ExclusiveStartKey:         startKey,
			})
			if err != nil {
				return apperrors.NewRemoteUnavailableError("dynamodb", err)
			}
			count += int(result.Count)
			if len(result.LastEvaluatedKey) == 0 {
				return nil
			}
			startKey = result.LastEvaluatedKey
		}
	})
	return count, err
}

// Create stores a new map; an existing map with the same id is a conflict
func (s *MindMapStore) Create(ctx context.Context, m *aggregates.MindMap) error {
	condition := expression.Name("PK").AttributeNotExists()
	return s.observe(ctx, "CreateMap", func(ctx context.Context) error {
		err := s.put(ctx, m, condition)
		if isConditionFailed(err) {
			return apperrors.NewConflictError("mind map " + m.MapID.String() + " already exists")
		}
		return err
	})
}

// Update overwrites a map whose stored version is one below m.Version
func (s *MindMapStore) Update(ctx context.Context, m *aggregates.MindMap) error {
	condition := expression.Name("PK").AttributeExists().
		And(expression.Name("Version").Equal(expression.Value(m.Version - 1)))
	return s.observe(ctx, "UpdateMap", func(ctx context.Context) error {
		err := s.put(ctx, m, condition)
		if isConditionFailed(err) {
			return apperrors.NewConflictError(fmt.Sprintf("mind map %s was changed or deleted concurrently", m.MapID)).
				WithDetail("version", m.Version)
		}
		return err
	})
}

// Delete removes a map, NotFound when it does not exist
func (s *MindMapStore) Delete(ctx context.Context, ownerID string, mapID valueobjects.MapID) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return apperrors.NewInternalError("build delete condition").WithCause(err)
	}

	return s.observe(ctx, "DeleteMap", func(ctx context.Context) error {
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                 aws.String(s.tableName),
			Key:                       itemKey(ownerID, mapID),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if isConditionFailed(err) {
			return apperrors.NewNotFoundError("mind map " + mapID.String())
		}
		if err != nil {
			return apperrors.NewRemoteUnavailableError("dynamodb", err)
		}
		s.logger.Debug("Mind map deleted",
			zap.String("mapID", mapID.String()),
			zap.String("ownerID", ownerID),
		)
		return nil
	})
}

func (s *MindMapStore) put(ctx context.Context, m *aggregates.MindMap, condition expression.ConditionBuilder) error {
	av, err := attributevalue.MarshalMap(toItem(m))
	if err != nil {
		return apperrors.NewDatabaseError("marshal mind map", err)
	}
	if size := itemSize(av); size > MaxItemBytes {
		return mapTooLarge(m, size)
	}

	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return apperrors.NewInternalError("build put condition").WithCause(err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionFailed(err) {
			return err
		}
		if isItemTooLarge(err) {
			return mapTooLarge(m, itemSize(av)).WithCause(err)
		}
		return apperrors.NewRemoteUnavailableError("dynamodb", err)
	}

	s.logger.Debug("Mind map stored",
		zap.String("mapID", m.MapID.String()),
		zap.String("ownerID", m.OwnerID),
		zap.Int("version", m.Version),
		zap.Int("nodeCount", len(m.Nodes)),
		zap.Int("edgeCount", len(m.Edges)),
	)
	return nil
}

func (s *MindMapStore) queryOwner(ctx context.Context, ownerID string) ([]map[string]types.AttributeValue, error) {
	expr, err := ownerKeyExpression(ownerID)
	if err != nil {
		return nil, err
	}

	var (
		items    []map[string]types.AttributeValue
		startKey map[string]types.AttributeValue
	)
	for {
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, apperrors.NewRemoteUnavailableError("dynamodb", err)
		}
		items = append(items, result.Items...)
		if len(result.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

// observe times one store call, records it and wraps it in a subsegment
func (s *MindMapStore) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	err := s.tracer.TraceFunction(ctx, "dynamodb."+operation, fn)
	s.metrics.RecordDBOperation(operation, err, time.Since(start))
	if err != nil && !apperrors.IsNotFound(err) {
		s.logger.Warn("DynamoDB operation failed",
			zap.String("operation", operation),
			zap.String("table", s.tableName),
			zap.Error(err),
		)
	}
	return err
}

func ownerKeyExpression(ownerID string) (expression.Expression, error) {
	keyEx := expression.Key("PK").Equal(expression.Value(userKey(ownerID))).
		And(expression.Key("SK").BeginsWith(mapKeyPrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return expression.Expression{}, apperrors.NewInternalError("build key condition").WithCause(err)
	}
	return expr, nil
}

func mapTooLarge(m *aggregates.MindMap, size int) *apperrors.AppError {
	return apperrors.NewValidationError(fmt.Sprintf("mind map %s is too large to store (%d of %d bytes)", m.MapID, size, MaxItemBytes)).
		WithCode(apperrors.CodeMapTooLarge).
		WithDetail("itemBytes", size).
		WithDetail("nodeCount", len(m.Nodes)).
		WithDetail("edgeCount", len(m.Edges))
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return err != nil && errors.As(err, &ccf)
}
