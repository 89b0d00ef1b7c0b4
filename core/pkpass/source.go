package pkpass

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	coreerrors "github.com/davidahmann/pkpass/core/errors"
	"github.com/davidahmann/pkpass/core/fsx"
	"github.com/davidahmann/pkpass/core/jcs"
	"github.com/davidahmann/pkpass/core/pass"
	"github.com/davidahmann/pkpass/core/zipx"
)

// Signer produces the detached signature stored next to manifest.json.
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// PassSource packages one source directory. It holds no per-build state and
// may be shared by concurrent callers.
type PassSource struct {
	fsys            fs.FS
	signer          Signer
	personalization *pass.Personalization
	logger          *log.Logger
}

type Option func(*PassSource)

func WithPersonalization(personalization pass.Personalization) Option {
	return func(s *PassSource) {
		copied := personalization
		copied.RequiredFields = append([]pass.PersonalizationField(nil), personalization.RequiredFields...)
		s.personalization = &copied
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *PassSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewPassSource(fsys fs.FS, signer Signer, options ...Option) *PassSource {
	source := &PassSource{
		fsys:   fsys,
		signer: signer,
		logger: log.New(io.Discard),
	}
	for _, option := range options {
		option(source)
	}
	return source
}

// OpenDir is NewPassSource over a directory on disk.
func OpenDir(dir string, signer Signer, options ...Option) *PassSource {
	return NewPassSource(os.DirFS(dir), signer, options...)
}

// SignedPass is the signed entry list of one build. Writing it more than once
// yields outputs that share one manifest and one signature.
type SignedPass struct {
	entries []zipx.File
	logger  *log.Logger
}

// Assemble resolves the pass, hashes every entry and signs the manifest.
func (s *PassSource) Assemble(explicit *pass.Pass) (*SignedPass, error) {
	entries, err := s.assemble(explicit)
	if err != nil {
		return nil, err
	}
	return &SignedPass{entries: entries, logger: s.logger}, nil
}

// Build returns the signed archive bytes, or nil and a *PassCreateError.
func (s *PassSource) Build(explicit *pass.Pass) ([]byte, error) {
	signed, err := s.Assemble(explicit)
	if err != nil {
		return nil, err
	}
	return signed.Archive()
}

// WriteFile builds the archive and writes it atomically to path.
func (s *PassSource) WriteFile(path string, explicit *pass.Pass) error {
	signed, err := s.Assemble(explicit)
	if err != nil {
		return err
	}
	return signed.WriteFile(path)
}

// WriteDirectory writes the signed pass unzipped to dir, replacing any
// previous content only after every entry is written.
func (s *PassSource) WriteDirectory(dir string, explicit *pass.Pass) error {
	signed, err := s.Assemble(explicit)
	if err != nil {
		return err
	}
	return signed.WriteDirectory(dir)
}

// Entries returns entry names in archive order.
func (p *SignedPass) Entries() []string {
	names := make([]string, 0, len(p.entries))
	for _, entry := range p.entries {
		names = append(names, entry.Path)
	}
	return names
}

func (p *SignedPass) Archive() ([]byte, error) {
	var buf bytes.Buffer
	if err := zipx.WriteDeterministicZip(&buf, p.entries); err != nil {
		var entryErr *zipx.EntryError
		if errors.As(err, &entryErr) {
			return nil, entryWriteError(entryErr.Path, err)
		}
		return nil, failure(CantCopySourceToTemp, err)
	}
	p.logger.Debug("archive built", "entries", len(p.entries), "bytes", buf.Len())
	return buf.Bytes(), nil
}

func (p *SignedPass) WriteFile(path string) error {
	archive, err := p.Archive()
	if err != nil {
		return err
	}
	return WriteArchive(path, archive)
}

func (p *SignedPass) WriteDirectory(dir string) error {
	staging, err := fsx.StageDirectory(dir)
	if err != nil {
		return failure(CantCreateTempDir, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()
	for _, entry := range p.entries {
		if err := fsx.WriteTreeFile(staging, entry.Path, entry.Data, 0o644); err != nil {
			return entryWriteError(entry.Path, err)
		}
	}
	if err := fsx.ReplaceDirectory(staging, dir); err != nil {
		return failure(CantCopySourceToTemp, err)
	}
	committed = true
	p.logger.Debug("pass directory written", "dir", dir, "entries", len(p.entries))
	return nil
}

// WriteArchive writes archive bytes produced by Archive atomically to path.
func WriteArchive(path string, archive []byte) error {
	if err := fsx.WriteFileAtomic(path, archive, 0o644); err != nil {
		return coreerrors.Wrap(
			fmt.Errorf("write archive: %w", err),
			coreerrors.CategoryIOFailure,
			"write_archive",
			"check that the output directory exists and is writable",
			false,
		)
	}
	return nil
}

// assemble returns every archive entry in write order: assets, pass.json,
// personalization.json, manifest.json, signature.
func (s *PassSource) assemble(explicit *pass.Pass) ([]zipx.File, error) {
	resolved, err := ResolvePass(explicit, s.fsys)
	if err != nil {
		return nil, err
	}
	entries, err := s.readAssets()
	if err != nil {
		return nil, err
	}

	passBytes, err := jcs.Marshal(resolved)
	if err != nil {
		return nil, failure(CantSerializePass, err)
	}
	entries = append(entries, zipx.File{Path: PassFile, Data: passBytes})

	if s.personalization != nil {
		if err := s.personalization.Validate(); err != nil {
			return nil, failure(CantSerializePass, err)
		}
		personalizationBytes, err := jcs.Marshal(s.personalization)
		if err != nil {
			return nil, failure(CantSerializePass, err)
		}
		entries = append(entries, zipx.File{Path: PersonalizationFile, Data: personalizationBytes})
	}

	manifest := Manifest{}
	for _, entry := range entries {
		digest := manifest.Add(entry.Path, entry.Data)
		s.logger.Debug("hashed entry", "path", entry.Path, "sha1", digest, "bytes", len(entry.Data))
	}
	manifestBytes, err := manifest.Marshal()
	if err != nil {
		return nil, failure(CantCreateManifestFile, err)
	}

	if s.signer == nil {
		return nil, failureDetail(CantSignManifest, errors.New("no signer configured"))
	}
	signature, err := s.signer.Sign(manifestBytes)
	if err != nil {
		return nil, failureDetail(CantSignManifest, err)
	}
	if len(signature) == 0 {
		return nil, failureDetail(CantSignManifest, errors.New("signer returned an empty signature"))
	}

	entries = append(entries,
		zipx.File{Path: ManifestFile, Data: manifestBytes},
		zipx.File{Path: SignatureFile, Data: signature},
	)
	return entries, nil
}

// readAssets loads every file under the source root in lexical order,
// skipping the names the build generates itself.
func (s *PassSource) readAssets() ([]zipx.File, error) {
	if s.fsys == nil {
		return nil, nil
	}
	var assets []zipx.File
	err := fs.WalkDir(s.fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return failure(CantReadTempDir, walkErr)
		}
		if entry.IsDir() || s.isGenerated(name) {
			return nil
		}
		if !entry.Type().IsRegular() {
			// Symlinks are followed; anything that does not resolve to a
			// regular file fails the build.
			info, err := fs.Stat(s.fsys, name)
			if err != nil {
				return newError(CantReadEntry, name, err)
			}
			if !info.Mode().IsRegular() {
				return newError(CantReadEntry, name, fmt.Errorf("%s is not a regular file", name))
			}
		}
		data, err := s.readEntry(name)
		if err != nil {
			return err
		}
		assets = append(assets, zipx.File{Path: name, Data: data})
		return nil
	})
	if err != nil {
		if _, ok := KindOf(err); ok {
			return nil, err
		}
		return nil, failure(CantReadTempDir, err)
	}
	return assets, nil
}

func (s *PassSource) readEntry(name string) ([]byte, error) {
	file, err := s.fsys.Open(name)
	if err != nil {
		return nil, newError(CantReadEntry, name, err)
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(io.LimitReader(file, zipx.MaxEntryBytes+1))
	if err != nil {
		return nil, failure(CantCalculateHashes, fmt.Errorf("read %s: %w", name, err))
	}
	if int64(len(data)) > zipx.MaxEntryBytes {
		return nil, newError(CantReadEntry, name, fmt.Errorf("%s exceeds %d bytes", name, zipx.MaxEntryBytes))
	}
	return data, nil
}

func (s *PassSource) isGenerated(name string) bool {
	switch name {
	case PassFile, ManifestFile, SignatureFile:
		return true
	case PersonalizationFile:
		return s.personalization != nil
	default:
		return false
	}
}

func entryWriteError(name string, err error) error {
	switch name {
	case PassFile:
		return failureDetail(CantWritePassFile, err)
	case ManifestFile:
		return failure(CantCreateManifestFile, err)
	case SignatureFile:
		return failureDetail(CantSignManifest, err)
	default:
		return failure(CantCopySourceToTemp, err)
	}
}
