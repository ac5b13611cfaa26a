package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mindmap-backend/domain/events"
	pkgerrors "mindmap-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockEventBridgeAPI struct {
	mock.Mock
}

func (m *MockEventBridgeAPI) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventbridge.PutEventsOutput), args.Error(1)
}

func savedEvents(n int) []events.DomainEvent {
	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	out := make([]events.DomainEvent, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, events.NewMindMapSaved("m1", "alice", i+1, 2, 1, i == 0, at))
	}
	return out
}

func TestPublisherPublish(t *testing.T) {
	// Arrange
	ctx := context.Background()
	api := new(MockEventBridgeAPI)
	var captured *eventbridge.PutEventsInput
	api.On("PutEvents", ctx, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*eventbridge.PutEventsInput) }).
		Return(&eventbridge.PutEventsOutput{}, nil).Once()
	publisher := NewPublisher(api, "mindmaps-bus", zap.NewNop())

	// Act
	err := publisher.Publish(ctx, savedEvents(1)[0])

	// Assert
	require.NoError(t, err)
	require.Len(t, captured.Entries, 1)
	entry := captured.Entries[0]
	assert.Equal(t, "mindmaps-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, events.TypeMindMapSaved, aws.ToString(entry.DetailType))
	assert.Equal(t, []string{"mindmap:m1"}, entry.Resources)

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "alice", detail["owner_id"])
	assert.Equal(t, true, detail["created"])
	api.AssertExpectations(t)
}

func TestPublisherBatchesByTen(t *testing.T) {
	ctx := context.Background()
	api := new(MockEventBridgeAPI)
	var sizes []int
	api.On("PutEvents", ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			sizes = append(sizes, len(args.Get(1).(*eventbridge.PutEventsInput).Entries))
		}).
		Return(&eventbridge.PutEventsOutput{}, nil)
	publisher := NewPublisher(api, "bus", nil)

	require.NoError(t, publisher.PublishBatch(ctx, savedEvents(23)))
	require.NoError(t, publisher.PublishBatch(ctx, nil))

	assert.Equal(t, []int{10, 10, 3}, sizes)
}

func TestPublisherFailures(t *testing.T) {
	tests := []struct {
		name   string
		output *eventbridge.PutEventsOutput
		err    error
	}{
		{name: "call fails", err: errors.New("throttled")},
		{
			name: "entry rejected",
			output: &eventbridge.PutEventsOutput{
				FailedEntryCount: 1,
				Entries:          []types.PutEventsResultEntry{{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("oops")}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			api := new(MockEventBridgeAPI)
			if tt.output != nil {
				api.On("PutEvents", ctx, mock.Anything).Return(tt.output, nil)
			} else {
				api.On("PutEvents", ctx, mock.Anything).Return(nil, tt.err)
			}
			publisher := NewPublisher(api, "bus", zap.NewNop())

			err := publisher.Publish(ctx, savedEvents(1)[0])

			assert.True(t, pkgerrors.IsRemoteUnavailable(err))
		})
	}
}
