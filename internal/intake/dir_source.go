package intake

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Source lists and loads candidate documents
type Source interface {
	List() ([]string, error)
	Load(name string) (*Document, error)
}

// DirSource implements Source over the files of one local directory
type DirSource struct {
	baseDir   string
	extractor *Extractor
	logger    *logrus.Entry
}

// NewDirSource creates a source reading resumes from baseDir
func NewDirSource(baseDir string, extractor *Extractor, logger *logrus.Entry) (*DirSource, error) {
	if logger == nil {
		logger = logrus.WithField("component", "dir_source")
	}

	info, err := os.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open resume directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", baseDir)
	}

	return &DirSource{
		baseDir:   baseDir,
		extractor: extractor,
		logger:    logger.WithField("dir", baseDir),
	}, nil
}

// List returns the names of supported files in lexical order
func (s *DirSource) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !DetectFormat(entry.Name(), "").Supported() {
			s.logger.WithField("file", entry.Name()).Debug("Skipping unsupported file")
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Load extracts a single file of the directory
func (s *DirSource) Load(name string) (*Document, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid file name %q", name)
	}
	return s.extractor.ExtractFile(filepath.Join(s.baseDir, name))
}

// LoadAll loads every listed file in order. Files that cannot be turned into
// text are logged and skipped; I/O failures abort.
func (s *DirSource) LoadAll() ([]*Document, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}

	docs := make([]*Document, 0, len(names))
	for _, name := range names {
		doc, err := s.Load(name)
		if err != nil {
			if IsExtractionError(err) {
				s.logger.WithError(err).WithField("file", name).Warn("Skipping unreadable resume")
				continue
			}
			return nil, err
		}
		docs = append(docs, doc)
	}

	s.logger.Debugf("Loaded %d resumes", len(docs))
	return docs, nil
}

var _ Source = (*DirSource)(nil)
