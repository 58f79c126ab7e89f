//go:build integration

package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const dynamoTestTable = "iam_events"
const dynamoTestGSI = "gsi_global"

// setupDynamoContainer starts a local DynamoDB container and returns a
// client pointed at it plus the table created with the store's key schema.
func setupDynamoContainer(t *testing.T) *dynamodb.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "amazon/dynamodb-local:latest",
		ExposedPorts: []string{"8000/tcp"},
		Cmd:          []string{"-jar", "DynamoDBLocal.jar", "-inMemory", "-sharedDb"},
		WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(60 * time.Second),
	}

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start DynamoDB local container")

	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate DynamoDB container: %v", err)
		}
	})

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "8000")
	require.NoError(t, err)

	endpoint := "http://" + host + ":" + port.Port()

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(dynamoTestTable),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("gsi1pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("gsi1sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(dynamoTestGSI),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("gsi1pk"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("gsi1sk"), KeyType: types.KeyTypeRange},
				},
				Projection:            &types.Projection{ProjectionType: types.ProjectionTypeAll},
				ProvisionedThroughput: &types.ProvisionedThroughput{ReadCapacityUnits: aws.Int64(5), WriteCapacityUnits: aws.Int64(5)},
			},
		},
		BillingMode: types.BillingModeProvisioned,
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(5),
			WriteCapacityUnits: aws.Int64(5),
		},
	})
	require.NoError(t, err, "failed to create events table")

	return client
}

func TestDynamoStore_PushAndLoad(t *testing.T) {
	client := setupDynamoContainer(t)
	store := NewDynamoStore(client, dynamoTestTable, dynamoTestGSI)
	ctx := context.Background()

	aggregateID := "user-dynamo-1"
	created := New("user", "created", aggregateID, "admin", "org-1", map[string]string{"email": "a@example.com"})
	created.WithScope("instance-1")

	saved, err := store.Push(ctx, aggregateID, 0, created)
	require.NoError(t, err)
	require.Equal(t, int64(1), saved.AggregateVersion())

	updated := New("user", "updated", aggregateID, "admin", "org-1", map[string]string{"email": "b@example.com"})
	_, err = store.Push(ctx, aggregateID, 1, updated)
	require.NoError(t, err)

	events, err := store.Load(ctx, aggregateID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "instance-1", events[0].InstanceID())

	version, err := store.CurrentVersion(ctx, aggregateID)
	require.NoError(t, err)
	require.Equal(t, int64(2), version)
}

func TestDynamoStore_ConcurrencyConflict(t *testing.T) {
	client := setupDynamoContainer(t)
	store := NewDynamoStore(client, dynamoTestTable, dynamoTestGSI)
	ctx := context.Background()

	aggregateID := "user-dynamo-2"
	event := New("user", "created", aggregateID, "admin", "org-1", nil)
	_, err := store.Push(ctx, aggregateID, 0, event)
	require.NoError(t, err)

	stale := New("user", "updated", aggregateID, "admin", "org-1", nil)
	_, err = store.Push(ctx, aggregateID, 0, stale)
	require.ErrorIs(t, err, ErrConcurrency)
}

func TestDynamoStore_QueryAcrossAggregates(t *testing.T) {
	client := setupDynamoContainer(t)
	store := NewDynamoStore(client, dynamoTestTable, dynamoTestGSI)
	ctx := context.Background()

	first := New("user", "created", "user-dynamo-3", "admin", "org-1", nil)
	second := New("project", "created", "project-dynamo-1", "admin", "org-1", nil)

	_, err := store.Push(ctx, "user-dynamo-3", 0, first)
	require.NoError(t, err)
	_, err = store.Push(ctx, "project-dynamo-1", 0, second)
	require.NoError(t, err)

	results, err := store.Query(ctx, Filter{Owner: "org-1"})
	require.NoError(t, err)
	require.Len(t, results, 2)
}
