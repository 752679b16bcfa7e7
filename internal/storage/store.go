package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lgwanai/email-mcp/internal/archive"
	apperrors "github.com/lgwanai/email-mcp/internal/errors"
	"github.com/lgwanai/email-mcp/internal/models"
	"github.com/lgwanai/email-mcp/internal/validator"
)

// Metadata documents kept inside each message directory
const (
	AttachmentDocName = "attachments.json"
	ExtractionLogName = "extraction_log.json"
	tempSuffix        = ".tmp"
	defaultDirPerm    = 0o755
	defaultFilePerm   = 0o644
)

// Store is the filesystem attachment store. Files live under
// {root}/{mailbox}/{message_uid}/, one directory per message, together with
// the per-message metadata documents. All mutating operations on one message
// directory are serialized through LockMessage.
type Store struct {
	root  string
	locks *keyedLocks

	// MaxFileSize bounds a single Put payload; zero means unlimited
	MaxFileSize int64
}

// NewStore opens (creating if needed) the attachment store rooted at root
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, defaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Store{root: abs, locks: newKeyedLocks()}, nil
}

// Root returns the absolute storage root directory
func (s *Store) Root() string {
	return s.root
}

// LockMessage acquires the per-message mutex and returns its release func.
// Callers hold it across multi-step operations such as extraction.
func (s *Store) LockMessage(mailbox string, uid uint32) func() {
	return s.locks.acquire(messageKey(mailbox, uid))
}

// MessageDir returns the absolute directory for one message's files. The
// directory is not created.
func (s *Store) MessageDir(mailbox string, uid uint32) string {
	return filepath.Join(s.root, validator.Sanitize(mailbox), strconv.FormatUint(uint64(uid), 10))
}

// resolve joins relPath onto the message directory and verifies the result
// stays inside it
func (s *Store) resolve(mailbox string, uid uint32, relPath string) (string, error) {
	dir := s.MessageDir(mailbox, uid)
	target := filepath.Join(dir, filepath.FromSlash(relPath))

	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if abs != dir && !strings.HasPrefix(abs, dir+string(filepath.Separator)) {
		return "", apperrors.NewAppError(apperrors.ErrInvalidInput,
			"path escapes the message directory", apperrors.CodeInvalidInput)
	}
	return abs, nil
}

// Put writes one attachment file into the message directory and returns its
// stored form. An empty filename gets a content-derived fallback name.
// Writing the same filename twice replaces the previous content; writing a
// name occupied by a directory is refused, so extraction output cannot be
// clobbered by a later download.
func (s *Store) Put(mailbox string, uid uint32, filename string, data []byte) (*models.StoredFile, error) {
	safe := validator.Sanitize(filename)
	if filename == "" {
		safe = validator.HashedNameFor(data)
	}

	if s.MaxFileSize > 0 && int64(len(data)) > s.MaxFileSize {
		return nil, apperrors.NewAppError(apperrors.ErrStorageFailure,
			fmt.Sprintf("%s exceeds the %d byte attachment size limit", safe, s.MaxFileSize),
			apperrors.CodeStorageFailure)
	}

	target, err := s.resolve(mailbox, uid, safe)
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return nil, apperrors.NewAppError(apperrors.ErrStorageFailure,
			fmt.Sprintf("%s is a directory", safe), apperrors.CodeStorageFailure)
	}

	if err := os.MkdirAll(filepath.Dir(target), defaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create message directory: %w", err)
	}

	tmp := target + tempSuffix
	if err := os.WriteFile(tmp, data, defaultFilePerm); err != nil {
		os.Remove(tmp)
		return nil, apperrors.NewAppError(apperrors.ErrStorageFailure,
			fmt.Sprintf("failed to write %s: %v", safe, err), apperrors.CodeStorageFailure)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return nil, apperrors.NewAppError(apperrors.ErrStorageFailure,
			fmt.Sprintf("failed to write %s: %v", safe, err), apperrors.CodeStorageFailure)
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("failed to stat written file: %w", err)
	}
	if info.Size() != int64(len(data)) {
		return nil, apperrors.NewAppError(apperrors.ErrStorageFailure,
			fmt.Sprintf("short write for %s: %d of %d bytes", safe, info.Size(), len(data)),
			apperrors.CodeStorageFailure)
	}

	return &models.StoredFile{
		Mailbox:    mailbox,
		MessageUID: uid,
		RelPath:    safe,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
	}, nil
}

// Get locates a stored file by its storage-relative path. When the literal
// path does not exist it retries with the sanitized form, then falls back to
// the attachment metadata document, so callers may pass the original
// attachment filename as it appeared in the message.
func (s *Store) Get(mailbox string, uid uint32, relPath string) (string, *models.StoredFile, error) {
	candidates := []string{relPath}
	if safe := validator.Sanitize(relPath); safe != relPath {
		candidates = append(candidates, safe)
	}
	if safe := validator.SanitizeRelPath(relPath); safe != "" && safe != relPath {
		candidates = append(candidates, safe)
	}
	if doc, err := s.ReadAttachmentDoc(mailbox, uid); err == nil {
		for _, ref := range doc.Attachments {
			if ref.Filename == relPath && ref.StoredPath != "" {
				candidates = append(candidates, ref.StoredPath)
			}
		}
	}

	for _, candidate := range candidates {
		abs, err := s.resolve(mailbox, uid, candidate)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		return abs, &models.StoredFile{
			Mailbox:    mailbox,
			MessageUID: uid,
			RelPath:    filepath.ToSlash(candidate),
			Size:       info.Size(),
			ModTime:    info.ModTime(),
		}, nil
	}

	return "", nil, apperrors.NewAppError(apperrors.ErrAttachmentNotFound,
		fmt.Sprintf("no stored file %s for message %d", relPath, uid),
		apperrors.CodeNotFound)
}

// FileEntry is one regular file in a message directory listing
type FileEntry struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"mod_time"`
	IsArchive bool      `json:"is_archive"`
}

// DirEntry is one subdirectory in a message directory listing, typically an
// extraction output tree
type DirEntry struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// ExtractionSummary aggregates the message's extraction log
type ExtractionSummary struct {
	HasExtractions bool      `json:"has_extractions"`
	TotalExtracted int       `json:"total_extracted"`
	LatestAt       time.Time `json:"latest_at,omitempty"`
}

// Listing is the content of one message directory
type Listing struct {
	Mailbox     string            `json:"mailbox"`
	MessageUID  uint32            `json:"message_uid"`
	Files       []FileEntry       `json:"files"`
	Dirs        []DirEntry        `json:"dirs"`
	Extractions ExtractionSummary `json:"extractions"`
}

// List enumerates the top level of a message directory, flagging files the
// extractor could unpack and summarizing past extractions. Metadata documents
// are not listed as files.
func (s *Store) List(mailbox string, uid uint32) (*Listing, error) {
	dir := s.MessageDir(mailbox, uid)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewAppError(apperrors.ErrMessageNotFound,
				fmt.Sprintf("no stored attachments for message %d", uid),
				apperrors.CodeNotFound)
		}
		return nil, fmt.Errorf("failed to read message directory: %w", err)
	}

	listing := &Listing{Mailbox: mailbox, MessageUID: uid, Files: []FileEntry{}, Dirs: []DirEntry{}}

	for _, entry := range entries {
		name := entry.Name()
		if name == AttachmentDocName || name == ExtractionLogName || strings.HasSuffix(name, tempSuffix) {
			continue
		}

		if entry.IsDir() {
			count := 0
			filepath.WalkDir(filepath.Join(dir, name), func(_ string, d os.DirEntry, err error) error {
				if err == nil && !d.IsDir() {
					count++
				}
				return nil
			})
			listing.Dirs = append(listing.Dirs, DirEntry{Name: name, Entries: count})
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		isArchive := false
		if kind, err := archive.ClassifyFile(filepath.Join(dir, name)); err == nil {
			isArchive = kind != archive.KindNone
		}
		listing.Files = append(listing.Files, FileEntry{
			Name:      name,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			IsArchive: isArchive,
		})
	}

	sort.Slice(listing.Files, func(i, j int) bool { return listing.Files[i].Name < listing.Files[j].Name })
	sort.Slice(listing.Dirs, func(i, j int) bool { return listing.Dirs[i].Name < listing.Dirs[j].Name })

	if log, err := s.ReadExtractionLog(mailbox, uid); err == nil && len(log.Records) > 0 {
		listing.Extractions.HasExtractions = true
		for _, rec := range log.Records {
			if rec.Failed {
				continue
			}
			listing.Extractions.TotalExtracted += rec.FileCount
			if rec.ExtractedAt.After(listing.Extractions.LatestAt) {
				listing.Extractions.LatestAt = rec.ExtractedAt
			}
		}
	}

	return listing, nil
}

// SaveAttachmentDoc writes the per-message attachment metadata document
func (s *Store) SaveAttachmentDoc(doc *models.AttachmentDoc) error {
	dir := s.MessageDir(doc.Mailbox, doc.MessageUID)
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return fmt.Errorf("failed to create message directory: %w", err)
	}
	return writeJSONFile(filepath.Join(dir, AttachmentDocName), doc)
}

// ReadAttachmentDoc reads the per-message attachment metadata document
func (s *Store) ReadAttachmentDoc(mailbox string, uid uint32) (*models.AttachmentDoc, error) {
	var doc models.AttachmentDoc
	path := filepath.Join(s.MessageDir(mailbox, uid), AttachmentDocName)
	if err := readJSONFile(path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// AppendExtractionRecord appends one record to the message's extraction log,
// creating the log on first use. Failed attempts are recorded too.
func (s *Store) AppendExtractionRecord(mailbox string, uid uint32, rec models.ExtractionRecord) error {
	dir := s.MessageDir(mailbox, uid)
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return fmt.Errorf("failed to create message directory: %w", err)
	}

	log, err := s.ReadExtractionLog(mailbox, uid)
	if err != nil {
		log = &models.ExtractionLog{Mailbox: mailbox, MessageUID: uid}
	}
	log.Records = append(log.Records, rec)

	return writeJSONFile(filepath.Join(dir, ExtractionLogName), log)
}

// ReadExtractionLog reads the message's extraction log
func (s *Store) ReadExtractionLog(mailbox string, uid uint32) (*models.ExtractionLog, error) {
	var log models.ExtractionLog
	path := filepath.Join(s.MessageDir(mailbox, uid), ExtractionLogName)
	if err := readJSONFile(path, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// RemovedMessage identifies one message directory dropped by cleanup
type RemovedMessage struct {
	Mailbox    string
	MessageUID uint32
}

// DeleteOlderThan removes message directories whose newest content is older
// than maxAge. Each directory is removed whole or left whole; directories
// that fail to delete are reported back and skipped, never half-removed.
func (s *Store) DeleteOlderThan(maxAge time.Duration) ([]RemovedMessage, []string, error) {
	cutoff := time.Now().Add(-maxAge)
	var removed []RemovedMessage
	var failed []string

	mailboxes, err := os.ReadDir(s.root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read storage root: %w", err)
	}

	for _, mb := range mailboxes {
		if !mb.IsDir() {
			continue
		}
		mbDir := filepath.Join(s.root, mb.Name())

		messages, err := os.ReadDir(mbDir)
		if err != nil {
			failed = append(failed, mb.Name())
			continue
		}
		for _, msg := range messages {
			if !msg.IsDir() {
				continue
			}
			msgDir := filepath.Join(mbDir, msg.Name())
			newest, err := newestModTime(msgDir)
			if err != nil || !newest.Before(cutoff) {
				continue
			}
			if err := os.RemoveAll(msgDir); err != nil {
				failed = append(failed, filepath.Join(mb.Name(), msg.Name()))
				continue
			}
			uid, err := strconv.ParseUint(msg.Name(), 10, 32)
			if err != nil {
				continue
			}
			removed = append(removed, RemovedMessage{Mailbox: mb.Name(), MessageUID: uint32(uid)})
		}

		// Drop mailbox directories left empty
		if remaining, err := os.ReadDir(mbDir); err == nil && len(remaining) == 0 {
			os.Remove(mbDir)
		}
	}

	return removed, failed, nil
}

// newestModTime finds the most recent modification time anywhere under dir
func newestModTime(dir string) (time.Time, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return time.Time{}, err
	}
	newest := info.ModTime()

	err = filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
		return nil
	})
	return newest, err
}

// Stats describes the store's disk usage
type Stats struct {
	Mailboxes  int   `json:"mailboxes"`
	Messages   int   `json:"messages"`
	Files      int   `json:"files"`
	TotalBytes int64 `json:"total_bytes"`
}

// Stats walks the store and totals its contents
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	mailboxes, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage root: %w", err)
	}

	for _, mb := range mailboxes {
		if !mb.IsDir() {
			continue
		}
		stats.Mailboxes++

		mbDir := filepath.Join(s.root, mb.Name())
		messages, err := os.ReadDir(mbDir)
		if err != nil {
			continue
		}
		for _, msg := range messages {
			if !msg.IsDir() {
				continue
			}
			stats.Messages++

			filepath.WalkDir(filepath.Join(mbDir, msg.Name()), func(_ string, d os.DirEntry, err error) error {
				if err != nil || d.IsDir() {
					return nil
				}
				if fi, err := d.Info(); err == nil {
					stats.Files++
					stats.TotalBytes += fi.Size()
				}
				return nil
			})
		}
	}

	return stats, nil
}

// writeJSONFile writes v as indented JSON via a temp file and rename, so a
// crash never leaves a truncated document
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tmp := path + tempSuffix
	if err := os.WriteFile(tmp, data, defaultFilePerm); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.NewAppError(apperrors.ErrNotFound,
				fmt.Sprintf("%s does not exist", filepath.Base(path)),
				apperrors.CodeNotFound)
		}
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
