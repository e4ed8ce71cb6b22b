package store

import (
	"algoexec/pkg/strategy"
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

type Uploader interface {
	UploadObject(ctx context.Context, bucket, key string, body []byte) error
}

// ArchivingStore copies the final snapshot of every stopped instance to object
// storage. Upload failures are logged; the inner store stays authoritative.
type ArchivingStore struct {
	Store
	uploader Uploader
	bucket   string
	prefix   string

	logger *log.Entry
}

func NewArchivingStore(inner Store, uploader Uploader, bucket, prefix string) *ArchivingStore {
	return &ArchivingStore{
		Store:    inner,
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		logger:   log.WithFields(log.Fields{"component": "store", "bucket": bucket}),
	}
}

func (s *ArchivingStore) archiveKey(gid string) string {
	return fmt.Sprintf("%s/archive/%s.msgpack", s.prefix, gid)
}

func (s *ArchivingStore) Save(ctx context.Context, state *strategy.InstanceState) error {
	if err := s.Store.Save(ctx, state); err != nil {
		return err
	}
	if !state.Stopped {
		return nil
	}
	data, err := encode(state)
	if err != nil {
		return err
	}
	if err := s.uploader.UploadObject(ctx, s.bucket, s.archiveKey(state.Gid), data); err != nil {
		s.logger.WithField("gid", state.Gid).Warnf("fail to archive state: %v", err)
	}
	return nil
}
