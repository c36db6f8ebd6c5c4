package cache

import (
	"encoding/json"
	"errors"
	"os"
)

type cacheState struct {
	path       string
	ImageByKey map[CacheKey]ImageID `json:"image_by_key"`
}

func (st *cacheState) getImageID(key CacheKey) (ImageID, bool) {
	id, ok := st.ImageByKey[key]
	if !ok {
		return "", false
	}

	if isBuilding(id) && isBuildingStale(id) {
		// the cleanup is optional so no error propagated.
		_ = st.cleanupKey(key)
		return "", false
	}

	return id, true
}

func (st *cacheState) cleanupKey(key CacheKey) error {
	delete(st.ImageByKey, key)

	return st.commit()
}

func (st *cacheState) setImageID(key CacheKey, imgID ImageID) error {
	st.ImageByKey[key] = imgID

	return st.commit()
}

func (st *cacheState) commit() error {
	if st.path == "" {
		// this is a readonly state
		return nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, st.path)
}

func newEmptyCacheState(path string) *cacheState {
	return &cacheState{
		path:       path,
		ImageByKey: make(map[CacheKey]ImageID),
	}
}

func newReadonlyEmptyCacheState() *cacheState {
	return newEmptyCacheState("")
}

func (c *Cache) loadState(readonly bool) (*cacheState, error) {
	path := c.cacheFilePath
	if readonly {
		path = ""
	}
	data, err := os.ReadFile(c.cacheFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newEmptyCacheState(path), nil
		}
		return nil, err
	}
	var st cacheState
	st.path = path
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	if st.ImageByKey == nil {
		st.ImageByKey = make(map[CacheKey]ImageID)
	}
	return &st, nil
}
