// Package cache maps build identities to Docker image IDs across pyship
// processes. The cache is a JSON file guarded by a filesystem lock; entries
// for builds that are currently in flight carry a BUILDING marker so
// concurrent invocations wait instead of racing the same build.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	buildingStaleAfter = 30 * time.Minute
	buildingPrefix     = "BUILDING:" // full format: BUILDING:<unixTs>:<key>
)

type Cache struct {
	cacheFilePath string // JSON file
	mu            FSMutex
}

type Manager interface {
	ResolveImage(
		ctx context.Context,
		key CacheKey,
		imageExists func(context.Context, ImageID) bool,
		buildImageSync func(context.Context) (ImageID, error),
	) (ImageID, error)
}

func NewManager(path string) (Manager, error) {
	if path == "" {
		return nil, errors.New("cache path required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	return &Cache{
		cacheFilePath: path,
		mu:            NewFSMutex(path + ".lock"),
	}, nil
}

// ResolveImage returns a usable image ID for the given key, building one via
// buildImageSync when the cache has no live entry. Cache failures are treated
// as warnings: pyship's job is to ship the service, not to skip work, and the
// Docker daemon keeps its own build cache anyway. A failed build never leaves
// an entry behind.
func (c *Cache) ResolveImage(
	ctx context.Context,
	key CacheKey,
	imageExists func(context.Context, ImageID) bool,
	buildImageSync func(context.Context) (ImageID, error),
) (ImageID, error) {
	if imageExists == nil || buildImageSync == nil {
		return "", errors.New("helpers imageExists and buildImageSync are mandatory for image resolving")
	}
	if key == "" {
		return "", errors.New("cache key required")
	}

	for {
		readOnlyState := false

		// 40 means "wait 40 times for 50 milliseconds. ~2 seconds"
		if err := c.mu.Lock(40); err != nil {
			readOnlyState = true
		}

		state, stateLoadErr := c.loadState(readOnlyState)
		if stateLoadErr != nil {
			// if we could lock but could not read the state
			// then unlock early and work with an empty readonly state.
			// unlocking early is fine because the mutex is idempotent.
			c.mu.Unlock()
			readOnlyState = true
			state = newReadonlyEmptyCacheState()
		}

		if id, ok := state.getImageID(key); ok {
			if isBuilding(id) {
				// the image is building by another process. wait a little and try again.
				c.mu.Unlock()
				time.Sleep(150 * time.Millisecond)
				continue
			}
			if imageExists(ctx, id) {
				c.mu.Unlock()
				return id, nil
			}
			_ = state.cleanupKey(key)
		}

		buildingID := newBuildingID(string(key))
		_ = state.setImageID(key, buildingID)
		// we don't want to keep the cache locked while building.
		c.mu.Unlock()

		imageID, buildErr := buildImageSync(ctx)
		if buildErr != nil {
			if e := c.mu.Lock(40); e != nil {
				return "", buildErr
			}

			if s, err := c.loadState(false); err == nil {
				if cur, ok := s.ImageByKey[key]; ok && cur == buildingID {
					_ = s.cleanupKey(key)
				}
			}

			c.mu.Unlock()
			return "", buildErr
		}

		if err := c.mu.Lock(40); err != nil {
			return imageID, nil
		}

		if s, err := c.loadState(false); err == nil {
			// we intentionally override whatever sits there: from a security
			// standpoint we trust only ourselves and don't want an arbitrary
			// cache-file-editing process to plant a malicious image.
			_ = s.setImageID(key, imageID)
		}

		c.mu.Unlock()
		return imageID, nil
	}
}

func newBuildingID(key string) ImageID {
	now := time.Now().Unix()
	return ImageID(fmt.Sprintf("%s%d:%s", buildingPrefix, now, key))
}

func isBuilding(id ImageID) bool {
	return strings.HasPrefix(string(id), buildingPrefix)
}

func parseBuildingMarker(id ImageID) (time.Time, bool) {
	if !isBuilding(id) {
		return time.Time{}, false
	}
	rest := strings.TrimPrefix(string(id), buildingPrefix)
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

func isBuildingStale(id ImageID) bool {
	ts, ok := parseBuildingMarker(id)
	if !ok {
		return false
	}
	return time.Since(ts) > buildingStaleAfter
}
