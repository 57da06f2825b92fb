package s3

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kitinfra/internal/util/naming"
)

// Location is an archive location.
type Location struct {
	Bucket string
	Prefix string
}

// String returns the location as s3://bucket/prefix.
func (l Location) String() string {
	if l.Prefix == "" {
		return "s3://" + l.Bucket
	}
	return "s3://" + l.Bucket + "/" + l.Prefix
}

// ParseLocation parses s3://bucket[/prefix].
func ParseLocation(uri string) (Location, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return Location{}, fmt.Errorf("archive %q must start with s3://", uri)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("archive %q has no bucket", uri)
	}
	return Location{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// ObjectStore is the part of Client the archive uses.
type ObjectStore interface {
	CreateBucket(ctx context.Context, bucketName string) error
	PutObject(ctx context.Context, bucketName, key string, data []byte) error
	GetObject(ctx context.Context, bucketName, key string) ([]byte, error)
	ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error)
}

// Archive stores run records of clusters.
type Archive struct {
	store    ObjectStore
	location Location
}

// NewArchive creates an archive at location.
func NewArchive(store ObjectStore, location Location) *Archive {
	return &Archive{store: store, location: location}
}

// Store writes the record of run and returns its URI. The bucket is created
// when missing.
func (a *Archive) Store(ctx context.Context, cluster, runID string, data []byte) (string, error) {
	if err := a.store.CreateBucket(ctx, a.location.Bucket); err != nil {
		return "", err
	}
	key := naming.PlanKey(a.location.Prefix, cluster, runID)
	if err := a.store.PutObject(ctx, a.location.Bucket, key, data); err != nil {
		return "", err
	}
	uri := "s3://" + a.location.Bucket + "/" + key
	log.FromContext(ctx).Info("run archived", "uri", uri)
	return uri, nil
}

// Load reads the record of run.
func (a *Archive) Load(ctx context.Context, cluster, runID string) ([]byte, error) {
	return a.store.GetObject(ctx, a.location.Bucket, naming.PlanKey(a.location.Prefix, cluster, runID))
}

// Runs returns the run ids archived for cluster, sorted.
func (a *Archive) Runs(ctx context.Context, cluster string) ([]string, error) {
	dir := path.Dir(naming.PlanKey(a.location.Prefix, cluster, "x")) + "/"
	keys, err := a.store.ListObjects(ctx, a.location.Bucket, dir)
	if err != nil {
		return nil, err
	}
	runs := make([]string, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, dir)
		if id, ok := strings.CutSuffix(name, ".json"); ok && !strings.Contains(id, "/") {
			runs = append(runs, id)
		}
	}
	slices.Sort(runs)
	return runs, nil
}
