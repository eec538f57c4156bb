// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifestfs exposes the files of a parsed build manifest as
// a read-only FUSE filesystem. File contents are fetched lazily
// through a chunkstore.Store as they are read, so mounting a build is
// instant and only the chunks actually touched are downloaded.
package manifestfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/bureau-foundation/buildpatch/lib/chunkstore"
	"github.com/bureau-foundation/buildpatch/lib/filestream"
	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

// DefaultPrefetchChunks is the number of chunks fetched in the
// background, in file order, on first access to a file.
const DefaultPrefetchChunks = 4

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// It is created if missing.
	Mountpoint string

	// Store serves chunk windows for the manifest being mounted.
	Store *chunkstore.Store

	// PrefetchChunks is the number of chunks to prefetch on first
	// read of a file. Zero uses DefaultPrefetchChunks; negative
	// disables prefetch.
	PrefetchChunks int

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, errors go to
	// stderr.
	Logger *slog.Logger
}

// Mount mounts the manifest's files at options.Mountpoint. The caller
// must call Unmount on the returned server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Store == nil {
		return nil, fmt.Errorf("%w: chunk store is required", manifest.ErrConfiguration)
	}
	if options.PrefetchChunks == 0 {
		options.PrefetchChunks = DefaultPrefetchChunks
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	tree, skipped := buildTree(options.Store.Manifest().Files)
	for _, err := range skipped {
		options.Logger.Warn("file not mounted", "error", err)
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	// Build contents never change while mounted.
	entryTimeout := time.Hour
	attrTimeout := time.Hour
	negativeTimeout := time.Hour

	root := &rootNode{directoryNode{options: &options, directory: tree}}
	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "buildpatch",
			Name:       "buildpatch",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	meta := options.Store.Manifest().Meta
	options.Logger.Info("build mounted",
		"mountpoint", options.Mountpoint,
		"app", meta.AppName,
		"version", meta.BuildVersion,
		"files", len(options.Store.Manifest().Files),
	)
	return server, nil
}

// rootNode is the build root. The whole tree is created as
// persistent inodes when the root is added.
type rootNode struct {
	directoryNode
}

var _ gofuse.NodeOnAdder = (*rootNode)(nil)

func (r *rootNode) OnAdd(ctx context.Context) {
	r.populate(ctx)
}

// directoryNode is a directory of the build.
type directoryNode struct {
	gofuse.Inode
	options   *Options
	directory *directory
}

var _ gofuse.InodeEmbedder = (*directoryNode)(nil)
var _ gofuse.NodeGetattrer = (*directoryNode)(nil)

func (d *directoryNode) populate(ctx context.Context) {
	for _, name := range d.directory.names() {
		if child, ok := d.directory.directories[name]; ok {
			node := &directoryNode{options: d.options, directory: child}
			d.AddChild(name, d.NewPersistentInode(ctx, node, gofuse.StableAttr{Mode: syscall.S_IFDIR}), false)
			node.populate(ctx)
			continue
		}

		file := d.directory.files[name]
		if file.IsSymlink() {
			inode := d.NewPersistentInode(ctx, &gofuse.MemSymlink{Data: []byte(file.SymlinkTarget)},
				gofuse.StableAttr{Mode: syscall.S_IFLNK})
			d.AddChild(name, inode, false)
			continue
		}
		inode := d.NewPersistentInode(ctx, &fileNode{options: d.options, file: file},
			gofuse.StableAttr{Mode: syscall.S_IFREG})
		d.AddChild(name, inode, false)
	}
}

func (d *directoryNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o555
	return 0
}

// fileNode is a regular file of the build. Its stream is opened on
// first use and shared by every handle.
type fileNode struct {
	gofuse.Inode
	options *Options
	file    *manifest.File

	mu     sync.Mutex
	stream *filestream.Stream

	prefetchOnce sync.Once
}

var _ gofuse.InodeEmbedder = (*fileNode)(nil)
var _ gofuse.NodeGetattrer = (*fileNode)(nil)
var _ gofuse.NodeOpener = (*fileNode)(nil)
var _ gofuse.NodeReader = (*fileNode)(nil)

// fileMode maps manifest flags to permission bits.
func fileMode(file *manifest.File) uint32 {
	if file.IsExecutable() {
		return 0o555
	}
	return 0o444
}

func (n *fileNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFREG | fileMode(n.file)
	out.Size = uint64(n.file.Size())
	out.Blocks = (out.Size + 511) / 512
	out.Blksize = 1 << 20
	return 0
}

func (n *fileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	if _, err := n.openStream(); err != nil {
		n.options.Logger.Error("opening file stream", "file", n.file.Name, "error", err)
		return nil, 0, syscall.EIO
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *fileNode) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	stream, err := n.openStream()
	if err != nil {
		return nil, syscall.EIO
	}

	n.triggerPrefetch()

	count, err := stream.ReadAtContext(ctx, dest, off)
	if err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, context.Canceled) {
			return nil, syscall.EINTR
		}
		n.options.Logger.Error("read failed",
			"file", n.file.Name,
			"offset", off,
			"error", err,
		)
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:count]), 0
}

func (n *fileNode) openStream() (*filestream.Stream, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stream != nil {
		return n.stream, nil
	}
	stream, err := filestream.Open(n.options.Store, n.file)
	if err != nil {
		return nil, err
	}
	n.stream = stream
	return stream, nil
}

// triggerPrefetch fetches the file's first chunks in the background
// so sequential readers overlap download with consumption. It fires
// once per file node.
func (n *fileNode) triggerPrefetch() {
	if n.options.PrefetchChunks <= 0 {
		return
	}
	n.prefetchOnce.Do(func() {
		go n.prefetch()
	})
}

func (n *fileNode) prefetch() {
	store := n.options.Store
	m := store.Manifest()
	seen := make(map[manifest.GUID]bool)
	for _, part := range n.file.ChunkParts {
		if len(seen) >= n.options.PrefetchChunks {
			return
		}
		if seen[part.GUID] {
			continue
		}
		seen[part.GUID] = true

		chunk, ok := m.ChunkByGUID(part.GUID)
		if !ok {
			return
		}
		if _, err := store.Window(context.Background(), store.DefaultMode(), chunk); err != nil {
			n.options.Logger.Warn("prefetch failed",
				"file", n.file.Name,
				"chunk", chunk.GUID,
				"error", err,
			)
			return
		}
	}
}
