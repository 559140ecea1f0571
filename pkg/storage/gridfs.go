package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	perrors "github.com/matzehuels/cityposter/pkg/errors"
)

// DefaultBucket is the GridFS bucket name for posters.
const DefaultBucket = "posters"

// GridFSStore keeps posters in a MongoDB GridFS bucket. Saving a name that
// already exists replaces the previous file.
type GridFSStore struct {
	client *mongo.Client
	bucket *gridfs.Bucket
	name   string
}

// NewGridFSStore connects to uri and opens bucket in database.
func NewGridFSStore(ctx context.Context, uri, database, bucket string) (*GridFSStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s, err := NewGridFSStoreFromClient(client, database, bucket)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// NewGridFSStoreFromClient opens bucket on an existing client.
func NewGridFSStoreFromClient(client *mongo.Client, database, bucket string) (*GridFSStore, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	b, err := gridfs.NewBucket(client.Database(database), options.GridFSBucket().SetName(bucket))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &GridFSStore{client: client, bucket: b, name: bucket}, nil
}

func (s *GridFSStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := perrors.ValidateFilename(name); err != nil {
		return "", err
	}
	if err := s.Delete(ctx, name); err != nil {
		return "", perrors.OutputWrite(err, "replace %s", name)
	}

	// GridFS finalizes the file document only after every chunk is written,
	// so an aborted upload is never visible under name.
	stream, err := s.bucket.OpenUploadStream(name)
	if err != nil {
		return "", perrors.OutputWrite(err, "open upload for %s", name)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = stream.SetWriteDeadline(dl)
	}
	if _, err := io.Copy(stream, bytes.NewReader(data)); err != nil {
		_ = stream.Abort()
		return "", perrors.OutputWrite(err, "upload %s", name)
	}
	if err := stream.Close(); err != nil {
		return "", perrors.OutputWrite(err, "finalize %s", name)
	}
	return fmt.Sprintf("gridfs://%s/%s", s.name, name), nil
}

func (s *GridFSStore) Load(ctx context.Context, name string) ([]byte, error) {
	stream, err := s.bucket.OpenDownloadStreamByName(name)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(dl)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, stream); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *GridFSStore) Delete(ctx context.Context, name string) error {
	cur, err := s.bucket.FindContext(ctx, bson.M{"filename": name})
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var files []struct {
		ID any `bson:"_id"`
	}
	if err := cur.All(ctx, &files); err != nil {
		return err
	}
	for _, f := range files {
		if err := s.bucket.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return err
		}
	}
	return nil
}

// Close disconnects the underlying client.
func (s *GridFSStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
