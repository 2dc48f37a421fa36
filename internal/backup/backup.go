// Package backup writes and restores tar.gz snapshots of the catalog
// database plus an optional config file. Every archive carries a YAML
// manifest describing its contents.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/grandline/internal/store"
	"github.com/HerbHall/grandline/internal/version"
)

// Archive member names.
const (
	ManifestName = "manifest.yaml"
	DatabaseName = "grandline.db"
)

// Size bounds for extracted archive members. Larger members fail the
// restore.
var (
	maxMemberBytes   int64 = 4 << 30
	maxManifestBytes int64 = 1 << 20
)

// Manifest describes a backup archive.
type Manifest struct {
	Version       string    `yaml:"version"`
	CreatedAt     time.Time `yaml:"createdAt"`
	SchemaVersion int       `yaml:"schemaVersion"`
	Database      string    `yaml:"database"`
	Config        string    `yaml:"config,omitempty"`
	Tables        []Table   `yaml:"tables"`
}

// Table is a row count captured at backup time.
type Table struct {
	Name string `yaml:"name"`
	Rows int64  `yaml:"rows"`
}

// Backup snapshots dbPath with VACUUM INTO, then archives the snapshot, the
// config file (when configPath names an existing file) and a manifest.
func Backup(ctx context.Context, dbPath, configPath, outputPath string) (*Manifest, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database file not found: %w", err)
	}

	tmp, err := os.MkdirTemp("", "grandline-backup-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)
	snapshot := filepath.Join(tmp, DatabaseName)

	m, err := snapshotDB(ctx, dbPath, snapshot)
	if err != nil {
		return nil, err
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	defer outFile.Close()

	gw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gw)

	if err := addFileToTar(tw, snapshot, DatabaseName); err != nil {
		return nil, fmt.Errorf("adding database to archive: %w", err)
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			m.Config = filepath.Base(configPath)
			if err := addFileToTar(tw, configPath, m.Config); err != nil {
				return nil, fmt.Errorf("adding config to archive: %w", err)
			}
		}
	}

	raw, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	hdr := &tar.Header{Name: ManifestName, Mode: 0o644, Size: int64(len(raw)), ModTime: m.CreatedAt}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("adding manifest to archive: %w", err)
	}
	if _, err := tw.Write(raw); err != nil {
		return nil, fmt.Errorf("adding manifest to archive: %w", err)
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return m, nil
}

// snapshotDB writes a consistent copy of dbPath to dst and records its
// table row counts.
func snapshotDB(ctx context.Context, dbPath, dst string) (*Manifest, error) {
	st, err := store.New(dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	schema, err := st.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	m := &Manifest{
		Version:       version.Version,
		CreatedAt:     time.Now().UTC(),
		SchemaVersion: schema,
		Database:      DatabaseName,
		Tables:        []Table{},
	}
	for _, name := range store.Tables {
		var n int64
		//nolint:gosec // table names come from the fixed schema list
		err := st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "`+name+`"`).Scan(&n)
		if store.IsMissingTable(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		m.Tables = append(m.Tables, Table{Name: name, Rows: n})
	}

	if _, err := st.DB().ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}
	return m, nil
}

// Restore extracts archivePath, replacing dbPath and, when configPath is
// non-empty and the archive holds a config file, configPath. The restored
// database is opened and integrity-checked before it replaces dbPath.
func Restore(ctx context.Context, archivePath, dbPath, configPath string) (*Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	defer gr.Close()

	tmp, err := os.MkdirTemp(filepath.Dir(dbPath), ".grandline-restore-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	var m *Manifest
	extracted := make(map[string]string)
	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || hdr.Name != filepath.Base(hdr.Name) {
			return nil, fmt.Errorf("unexpected archive member %q", hdr.Name)
		}
		if hdr.Name == ManifestName {
			raw, err := io.ReadAll(io.LimitReader(tr, maxManifestBytes+1))
			if err != nil {
				return nil, fmt.Errorf("read manifest: %w", err)
			}
			if int64(len(raw)) > maxManifestBytes {
				return nil, fmt.Errorf("manifest exceeds %d bytes", maxManifestBytes)
			}
			m = &Manifest{}
			if err := yaml.Unmarshal(raw, m); err != nil {
				return nil, fmt.Errorf("decode manifest: %w", err)
			}
			continue
		}
		dst := filepath.Join(tmp, hdr.Name)
		if err := writeMember(dst, tr); err != nil {
			return nil, err
		}
		extracted[hdr.Name] = dst
	}

	if m == nil {
		return nil, errors.New("archive has no manifest")
	}
	dbFile, ok := extracted[m.Database]
	if !ok {
		return nil, fmt.Errorf("archive is missing database %q", m.Database)
	}
	if err := verify(ctx, dbFile); err != nil {
		return nil, err
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(dbPath + suffix)
	}
	if err := os.Rename(dbFile, dbPath); err != nil {
		return nil, fmt.Errorf("replace database: %w", err)
	}
	if configPath != "" && m.Config != "" {
		if src, ok := extracted[m.Config]; ok {
			if err := os.Rename(src, configPath); err != nil {
				return nil, fmt.Errorf("replace config: %w", err)
			}
		}
	}
	return m, nil
}

// verify opens a restored database and runs PRAGMA integrity_check.
func verify(ctx context.Context, path string) error {
	st, err := store.New(path)
	if err != nil {
		return fmt.Errorf("restored database unreadable: %w", err)
	}
	defer st.Close()

	var result string
	if err := st.DB().QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	// Fold the WAL created by opening the file back into the database so
	// only one file needs to move.
	if _, err := st.DB().ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpoint restored database: %w", err)
	}
	return nil
}

// writeMember copies r to dst, failing when r holds more than
// maxMemberBytes.
func writeMember(dst string, r io.Reader) error {
	name := filepath.Base(dst)
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("extract %s: %w", name, err)
	}
	n, err := io.Copy(out, io.LimitReader(r, maxMemberBytes+1))
	if err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", name, err)
	}
	if n > maxMemberBytes {
		out.Close()
		return fmt.Errorf("extract %s: member exceeds %d bytes", name, maxMemberBytes)
	}
	return out.Close()
}

// addFileToTar adds a single file to the tar archive under the given name.
func addFileToTar(tw *tar.Writer, filePath, archiveName string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = archiveName

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	_, err = io.Copy(tw, f)
	return err
}
