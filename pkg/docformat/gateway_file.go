package docformat

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cuemby/clustermeta/pkg/metadata"
	"github.com/cuemby/clustermeta/pkg/metaerr"
)

// gatewayFilePrefix names every persisted generation: "global-<version>".
const gatewayFilePrefix = "global-"

// WriteGatewayFile persists md's GATEWAY document as dir/global-<version>,
// framed as a length-prefixed JSON body followed by a trailing CRC-32 of
// the length prefix and body together. The file is written to a temporary name and renamed into place
// (atomic on the same filesystem), then every other global-* file in dir is
// unlinked so only the latest generation's reference remains.
func WriteGatewayFile(dir string, md metadata.Metadata) error {
	doc := ToDocument(md, Gateway)
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal gateway document: %w", err)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(body))); err != nil {
		return err
	}
	buf.Write(body)
	checksum := crc32.ChecksumIEEE(buf.Bytes())
	if err := binary.Write(&buf, binary.BigEndian, checksum); err != nil {
		return err
	}

	finalName := filepath.Join(dir, fmt.Sprintf("%s%d", gatewayFilePrefix, md.Version))
	tmpName := finalName + ".tmp"
	if err := os.WriteFile(tmpName, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write gateway temp file: %w", err)
	}
	if err := os.Rename(tmpName, finalName); err != nil {
		return fmt.Errorf("rename gateway file into place: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, gatewayFilePrefix) && name != filepath.Base(finalName) && !strings.HasSuffix(name, ".tmp") {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
	return nil
}

// ReadLatestGatewayFile reads the highest-versioned global-<version> file in
// dir, verifies its CRC-32 trailer, and parses its GATEWAY document.
func ReadLatestGatewayFile(dir string) (metadata.Metadata, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return metadata.Metadata{}, fmt.Errorf("read state directory: %w", err)
	}

	var best string
	var bestVersion uint64
	found := false
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, gatewayFilePrefix) || strings.HasSuffix(name, ".tmp") {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimPrefix(name, gatewayFilePrefix), 10, 64)
		if err != nil {
			continue
		}
		if !found || v > bestVersion {
			best, bestVersion, found = name, v, true
		}
	}
	if !found {
		return metadata.Metadata{}, metaerr.NotFoundf("gateway file", "no global-* file found in %s", dir)
	}

	raw, err := os.ReadFile(filepath.Join(dir, best))
	if err != nil {
		return metadata.Metadata{}, fmt.Errorf("read gateway file: %w", err)
	}
	if len(raw) < 8 {
		return metadata.Metadata{}, metaerr.New(metaerr.CorruptMetadata, "gateway file %s is too short to contain a valid frame", best)
	}

	bodyLen := binary.BigEndian.Uint32(raw[:4])
	if uint32(len(raw)) < 4+bodyLen+4 {
		return metadata.Metadata{}, metaerr.New(metaerr.CorruptMetadata, "gateway file %s length prefix %d exceeds file size", best, bodyLen)
	}
	body := raw[4 : 4+bodyLen]
	wantChecksum := binary.BigEndian.Uint32(raw[4+bodyLen : 4+bodyLen+4])
	gotChecksum := crc32.ChecksumIEEE(raw[:4+bodyLen])
	if gotChecksum != wantChecksum {
		return metadata.Metadata{}, metaerr.New(metaerr.CorruptMetadata, "gateway file %s failed checksum verification", best)
	}

	var doc Node
	if err := json.Unmarshal(body, &doc); err != nil {
		return metadata.Metadata{}, metaerr.Wrap(metaerr.CorruptMetadata, err, "decode gateway document")
	}
	return FromGatewayDocument(doc)
}

// listGenerations returns every persisted version in dir, ascending, for
// diagnostics and tests.
func listGenerations(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []uint64
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, gatewayFilePrefix) || strings.HasSuffix(name, ".tmp") {
			continue
		}
		if v, err := strconv.ParseUint(strings.TrimPrefix(name, gatewayFilePrefix), 10, 64); err == nil {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
