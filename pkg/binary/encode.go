package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/http"

	"github.com/S1riyS/os-course-lab-4/snfs/internal/models"
)

func EncodeNodeMeta(meta *models.NodeMeta) ([]byte, error) {
	buf := new(bytes.Buffer)

	// ino (uint64, 8 bytes)
	if err := binary.Write(buf, binary.LittleEndian, meta.Ino); err != nil {
		return nil, fmt.Errorf("failed to encode ino: %w", err)
	}

	// parent_ino (uint64, 8 bytes)
	if err := binary.Write(buf, binary.LittleEndian, meta.ParentIno); err != nil {
		return nil, fmt.Errorf("failed to encode parent_ino: %w", err)
	}

	// type (int16, 2 bytes)
	if err := binary.Write(buf, binary.LittleEndian, int16(meta.Type)); err != nil {
		return nil, fmt.Errorf("failed to encode type: %w", err)
	}

	// mode (uint32, 4 bytes)
	if err := binary.Write(buf, binary.LittleEndian, meta.Mode); err != nil {
		return nil, fmt.Errorf("failed to encode mode: %w", err)
	}

	// size (int64, 8 bytes)
	if err := binary.Write(buf, binary.LittleEndian, meta.Size); err != nil {
		return nil, fmt.Errorf("failed to encode size: %w", err)
	}

	return buf.Bytes(), nil
}

const DirentNameSize = 256

// DirentSize is the encoded size of one dirent.
const DirentSize = DirentNameSize + 8 + 2

func EncodeDirent(dirent *models.Dirent) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeDirent(buf, dirent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeDirents writes a uint32 count followed by the dirents back to back.
func EncodeDirents(dirents []models.Dirent) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(4 + len(dirents)*DirentSize)

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(dirents))); err != nil {
		return nil, fmt.Errorf("failed to encode count: %w", err)
	}

	for i := range dirents {
		if err := writeDirent(buf, &dirents[i]); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func writeDirent(buf *bytes.Buffer, dirent *models.Dirent) error {
	if len(dirent.Name) >= DirentNameSize {
		return fmt.Errorf("failed to encode name: %d bytes do not fit", len(dirent.Name))
	}

	// name (char[256], null-terminated, padded with zeros)
	nameBytes := make([]byte, DirentNameSize)
	copy(nameBytes, dirent.Name)
	if _, err := buf.Write(nameBytes); err != nil {
		return fmt.Errorf("failed to encode name: %w", err)
	}

	// ino (uint64, 8 bytes)
	if err := binary.Write(buf, binary.LittleEndian, dirent.Ino); err != nil {
		return fmt.Errorf("failed to encode ino: %w", err)
	}

	// type (int16, 2 bytes)
	if err := binary.Write(buf, binary.LittleEndian, int16(dirent.Type)); err != nil {
		return fmt.Errorf("failed to encode type: %w", err)
	}

	return nil
}

func WriteResponse(w http.ResponseWriter, code int64, data []byte) error {
	response := new(bytes.Buffer)

	// return code (int64, 8 bytes)
	if err := binary.Write(response, binary.LittleEndian, code); err != nil {
		return fmt.Errorf("failed to write response code: %w", err)
	}

	// payload, if any
	if data != nil {
		if _, err := response.Write(data); err != nil {
			return fmt.Errorf("failed to write response data: %w", err)
		}
	}

	body := response.Bytes()

	// Set headers
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(body)))
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)

	_, err := w.Write(body)
	return err
}

func WriteUint32Response(w http.ResponseWriter, code int64, value uint32) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, value); err != nil {
		return err
	}
	return WriteResponse(w, code, buf.Bytes())
}

func WriteInt64Response(w http.ResponseWriter, code int64, value int64) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, value); err != nil {
		return err
	}
	return WriteResponse(w, code, buf.Bytes())
}
