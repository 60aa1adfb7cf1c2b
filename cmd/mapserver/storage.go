// SPDX-License-Identifier: MIT

package main

import (
	"compress/gzip"
	"context"
	"encoding/base32"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ulikunitz/xz"
)

const bucket = "rastermap"

// Storage keeps local copies of the map files published in remote
// object storage. Remote objects may be compressed; the local copy is
// always the raw map file, ready for memory-mapping.
type Storage struct {
	client  storageClient
	workdir string
	mutex   sync.RWMutex
	files   map[string]*localFile
}

// localFile is a decompressed map file in the working directory.
type localFile struct {
	Path         string
	ETag         string
	LastModified time.Time
}

// storageClient is the subset of minio.Client used in this program.
// For testing, struct fakeStorageClient provides a fake
// implementation.
type storageClient interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
}

// NewStorage sets up a client for accessing S3-compatible object
// storage.
func NewStorage(keypath, workdir string) (*Storage, error) {
	if err := os.MkdirAll(workdir, 0755); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(keypath)
	if err != nil {
		return nil, err
	}

	var config struct{ Endpoint, Key, Secret string }
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Key, config.Secret, ""),
		Secure: true,
	})
	if err != nil {
		return nil, err
	}

	client.SetAppInfo("RasterMapServer", "0.1")
	return &Storage{
		client:  client,
		workdir: workdir,
		files:   make(map[string]*localFile, 4),
	}, nil
}

// Published map files are named public/<name>-YYYYMMDD.map with an
// optional compression suffix.
var objRegexp = regexp.MustCompile(`public/([a-z0-9\-]+)\-(2[0-9]{7})\.map(\.(?:gz|bz2|br|xz|zst))?$`)

// Reload caches the newest version of each published map file to
// local disk, decompressing as needed. Obsolete local copies are
// deleted.
func (s *Storage) Reload(ctx context.Context) error {
	objects := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    "public/",
		Recursive: false,
	})
	inStorage := make(map[string]minio.ObjectInfo, 4)
	for obj := range objects {
		if m := objRegexp.FindStringSubmatch(obj.Key); m != nil {
			filename := m[1] + ".map"
			info := inStorage[filename]
			if obj.LastModified.After(info.LastModified) {
				inStorage[filename] = obj
			}
		}
	}

	files := make(map[string]*localFile, len(inStorage))
	for filename, obj := range inStorage {
		mangled := base32.HexEncoding.EncodeToString([]byte(obj.ETag))
		path, err := filepath.Abs(filepath.Join(
			s.workdir,
			fmt.Sprintf("%s-%s", mangled, filename)))
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			if err := s.fetch(ctx, obj, path); err != nil {
				return err
			}
		}

		files[filename] = &localFile{
			Path:         path,
			ETag:         obj.ETag,
			LastModified: obj.LastModified.UTC(),
		}
	}

	live := make(map[string]bool, len(files))
	for _, f := range files {
		live[f.Path] = true
	}

	s.mutex.Lock()
	s.files = files
	s.mutex.Unlock()

	// Keep only live files in the workdir. Deleting a file that an
	// in-flight request still has open is fine; the unlinked inode
	// stays around until the last handle closes.
	ff, err := os.ReadDir(s.workdir)
	if err != nil {
		return err
	}
	for _, f := range ff {
		fp, err := filepath.Abs(filepath.Join(s.workdir, f.Name()))
		if err != nil {
			return err
		}
		if !live[fp] {
			log.Printf("Deleting obsolete local file: %s", fp)
			if err := os.Remove(fp); err != nil {
				return err
			}
		}
	}

	return nil
}

// fetch downloads one object and stores its decompressed content at
// path. The download goes to a temporary file first so a crashed
// process never leaves a half-written map behind.
func (s *Storage) fetch(ctx context.Context, obj minio.ObjectInfo, path string) error {
	rawPath := path + ".download"
	if err := s.client.FGetObject(ctx, bucket, obj.Key, rawPath, minio.GetObjectOptions{}); err != nil {
		return err
	}
	defer os.Remove(rawPath)

	tmpPath := path + ".tmp"
	if err := decompressFile(rawPath, tmpPath, filepath.Ext(obj.Key)); err != nil {
		return fmt.Errorf("decompressing %s: %w", obj.Key, err)
	}
	if err := os.Chtimes(tmpPath, time.Now(), obj.LastModified); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// decompressFile copies src to dst, undoing the compression implied
// by ext. ".map" means the object is already raw.
func decompressFile(src, dst, ext string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	reader, closer, err := decompressor(f, ext)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func decompressor(r io.Reader, ext string) (io.Reader, func(), error) {
	switch strings.ToLower(ext) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil
	case ".bz2":
		br, err := bzip2.NewReader(r, &bzip2.ReaderConfig{})
		if err != nil {
			return nil, nil, err
		}
		return br, func() { br.Close() }, nil
	case ".br":
		return brotli.NewReader(r), nil, nil
	case ".xz":
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, nil, nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case ".map":
		return r, nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported compression suffix %q", ext)
}

// MapPath returns the local path of the named map file, e.g.
// "world.map".
func (s *Storage) MapPath(filename string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	loc, found := s.files[filename]
	if !found {
		return "", fmt.Errorf("map file %q not in storage", filename)
	}
	return loc.Path, nil
}
