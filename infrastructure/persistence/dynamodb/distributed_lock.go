package dynamodb

import (
	"context"
	"time"

	"mindmap-backend/application/ports"
	apperrors "mindmap-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockKeyPrefix    = "LOCK#"
	lockSortKey      = "LOCK"
	minRetryInterval = 25 * time.Millisecond
	maxRetryInterval = time.Second
)

// DistributedLock serializes map saves across processes using conditional
// writes on a lock item in the map table
type DistributedLock struct {
	client    API
	tableName string
	owner     string
	now       func() time.Time
	logger    *zap.Logger
}

// lockRecord represents a lock record in DynamoDB
type lockRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	LockID     string `dynamodbav:"LockID"`
	Owner      string `dynamodbav:"Owner"`
	AcquiredAt string `dynamodbav:"AcquiredAt"`
	// ExpiresAt is in unix milliseconds so stale locks compare numerically
	ExpiresAt int64 `dynamodbav:"ExpiresAt"`
	// TTL lets DynamoDB reap abandoned locks
	TTL int64 `dynamodbav:"TTL"`
}

// NewDistributedLock creates a locker; owner identifies this process
func NewDistributedLock(client API, tableName, owner string, logger *zap.Logger) *DistributedLock {
	if owner == "" {
		owner = uuid.NewString()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DistributedLock{
		client:    client,
		tableName: tableName,
		owner:     owner,
		now:       time.Now,
		logger:    logger,
	}
}

var _ ports.MapLocker = (*DistributedLock)(nil)

// Acquire blocks until the lock is taken or ctx is done. A lock held past
// its ttl is treated as abandoned and may be taken over.
func (dl *DistributedLock) Acquire(ctx context.Context, resource string, ttl time.Duration) (ports.Lock, error) {
	retryInterval := minRetryInterval
	for {
		lock, held, err := dl.tryAcquire(ctx, resource, ttl)
		if err != nil {
			return nil, err
		}
		if !held {
			return lock, nil
		}

		select {
		case <-ctx.Done():
			dl.logger.Debug("Gave up waiting for lock",
				zap.String("resource", resource),
				zap.Error(ctx.Err()),
			)
			return nil, ctx.Err()
		case <-time.After(retryInterval):
			if retryInterval < maxRetryInterval {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}
}

// tryAcquire makes one attempt; held reports contention
func (dl *DistributedLock) tryAcquire(ctx context.Context, resource string, ttl time.Duration) (*Lock, bool, error) {
	now := dl.now()
	expiresAt := now.Add(ttl)
	record := lockRecord{
		PK:         lockKeyPrefix + resource,
		SK:         lockSortKey,
		EntityType: "LOCK",
		LockID:     uuid.NewString(),
		Owner:      dl.owner,
		AcquiredAt: now.UTC().Format(time.RFC3339Nano),
		ExpiresAt:  expiresAt.UnixMilli(),
		TTL:        expiresAt.Add(time.Hour).Unix(),
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, false, apperrors.NewDatabaseError("marshal lock", err)
	}

	condition := expression.Name("PK").AttributeNotExists().
		Or(expression.Name("ExpiresAt").LessThan(expression.Value(now.UnixMilli())))
	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return nil, false, apperrors.NewInternalError("build lock condition").WithCause(err)
	}

	_, err = dl.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(dl.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if isConditionFailed(err) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, apperrors.NewRemoteUnavailableError("dynamodb", err)
	}

	dl.logger.Debug("Lock acquired",
		zap.String("resource", resource),
		zap.String("lockID", record.LockID),
		zap.Duration("ttl", ttl),
	)
	return &Lock{
		locker:    dl,
		resource:  resource,
		lockID:    record.LockID,
		expiresAt: expiresAt,
	}, false, nil
}

func (dl *DistributedLock) release(ctx context.Context, resource, lockID string) error {
	condition := expression.Name("LockID").Equal(expression.Value(lockID)).
		And(expression.Name("Owner").Equal(expression.Value(dl.owner)))
	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return apperrors.NewInternalError("build unlock condition").WithCause(err)
	}

	_, err = dl.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(dl.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: lockKeyPrefix + resource},
			"SK": &types.AttributeValueMemberS{Value: lockSortKey},
		},
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if isConditionFailed(err) {
		// expired and taken over, nothing left to release
		dl.logger.Warn("Lock already released or taken over",
			zap.String("resource", resource),
			zap.String("lockID", lockID),
		)
		return nil
	}
	if err != nil {
		return apperrors.NewRemoteUnavailableError("dynamodb", err)
	}

	dl.logger.Debug("Lock released",
		zap.String("resource", resource),
		zap.String("lockID", lockID),
	)
	return nil
}

// Lock represents an acquired distributed lock
type Lock struct {
	locker    *DistributedLock
	resource  string
	lockID    string
	expiresAt time.Time
	released  bool
}

// Release releases the lock. Releasing twice is a no-op.
func (l *Lock) Release(ctx context.Context) error {
	if l.released {
		return nil
	}
	if err := l.locker.release(ctx, l.resource, l.lockID); err != nil {
		return err
	}
	l.released = true
	return nil
}

// IsExpired checks if the lock has expired
func (l *Lock) IsExpired() bool {
	return l.locker.now().After(l.expiresAt)
}
