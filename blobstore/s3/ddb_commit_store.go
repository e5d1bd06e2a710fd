package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/VijetHegde604/GeoGenie-backend/blobstore"
)

// currentName is the virtual blob that resolves to the latest committed
// snapshot name.
const currentName = "CURRENT"

// ErrConcurrentCommit is returned when another writer committed the same
// version first.
var ErrConcurrentCommit = errors.New("concurrent snapshot commit detected")

// DDBClient is the interface for the DynamoDB operations the commit store
// uses. Satisfied by *dynamodb.Client; narrowed for testability.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DDBCommitStore wraps an S3 store with a DynamoDB commit log so snapshot
// publication is atomic. S3 has no compare-and-swap; the conditional write
// on (base_uri, version) provides it.
//
// Writing the CURRENT blob commits a new version pointing at a snapshot
// name; opening CURRENT resolves the latest committed snapshot name.
// All other names pass straight through to S3.
//
// Table schema:
//   - Partition key: base_uri (string)
//   - Sort key: version (number), monotonically increasing
type DDBCommitStore struct {
	inner     blobstore.BlobStore
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// Compile-time check to ensure DDBCommitStore satisfies the BlobStore interface.
var _ blobstore.BlobStore = (*DDBCommitStore)(nil)

// NewDDBCommitStore creates a new S3+DynamoDB commit store.
// baseURI should be "s3://bucket/prefix", used as the partition key.
func NewDDBCommitStore(inner blobstore.BlobStore, ddbClient DDBClient, tableName, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{
		inner:     inner,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Open opens a blob for reading. Opening CURRENT resolves the latest
// committed snapshot name from DynamoDB.
func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name == currentName {
		version, snapshotName, err := s.latestVersion(ctx)
		if err != nil {
			return nil, err
		}
		if version == 0 {
			return nil, blobstore.ErrNotFound
		}
		return &virtualBlob{content: []byte(snapshotName)}, nil
	}
	return s.inner.Open(ctx, name)
}

// Put writes a blob. Writing CURRENT commits the named snapshot.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name == currentName {
		return s.commit(ctx, string(data))
	}
	return s.inner.Put(ctx, name, data)
}

// Delete removes a blob. CURRENT cannot be deleted.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	if name == currentName {
		return fmt.Errorf("cannot delete %s", currentName)
	}
	return s.inner.Delete(ctx, name)
}

// List lists blobs with prefix.
func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Current returns the latest committed snapshot name, or blobstore.ErrNotFound.
func (s *DDBCommitStore) Current(ctx context.Context) (string, error) {
	version, snapshotName, err := s.latestVersion(ctx)
	if err != nil {
		return "", err
	}
	if version == 0 {
		return "", blobstore.ErrNotFound
	}
	return snapshotName, nil
}

func (s *DDBCommitStore) latestVersion(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query commit log: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in commit log")
	}
	nameAttr, ok := item["snapshot_name"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid snapshot_name attribute in commit log")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse version: %w", err)
	}

	return version, nameAttr.Value, nil
}

// commit writes version latest+1 with a conditional put; a concurrent
// writer racing to the same version loses with ErrConcurrentCommit.
func (s *DDBCommitStore) commit(ctx context.Context, snapshotName string) error {
	latest, _, err := s.latestVersion(ctx)
	if err != nil {
		return err
	}
	next := latest + 1

	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":      &types.AttributeValueMemberS{Value: s.baseURI},
			"version":       &types.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"snapshot_name": &types.AttributeValueMemberS{Value: snapshotName},
		},
		ConditionExpression: aws.String("attribute_not_exists(base_uri) AND attribute_not_exists(version)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return ErrConcurrentCommit
		}
		return fmt.Errorf("commit snapshot version %d: %w", next, err)
	}

	return nil
}

type virtualBlob struct {
	content []byte
}

func (b *virtualBlob) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.content)) {
		return 0, errors.New("read out of range")
	}
	n := copy(p, b.content[off:])
	return n, nil
}

func (b *virtualBlob) Close() error { return nil }

func (b *virtualBlob) Size() int64 { return int64(len(b.content)) }

func (b *virtualBlob) Bytes() ([]byte, error) { return b.content, nil }
