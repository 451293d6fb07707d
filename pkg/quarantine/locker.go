package quarantine

import (
	"bufio"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"io"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// sealHeader is stored in clear at the start of a sealed container so
// listings do not require the password.
type sealHeader struct {
	Path     string    `json:"path"`
	Verdict  string    `json:"verdict"`
	Mode     uint32    `json:"mode"`
	ModTime  time.Time `json:"mod-time"`
	Size     int64     `json:"size"`
	SealedAt time.Time `json:"sealed-at"`
}

const (
	sealKeyIterations = 4096
	sealSaltSize      = 32
)

var errTruncatedSeal = errors.New("sealed container truncated")

// seal writes the header in clear followed by the AES-CTR encrypted
// file content, keyed from the password with a fresh salt.
func seal(password string, header sealHeader, in io.Reader, out io.Writer) (err error) {
	headerLine, err := json.Marshal(header)
	if err != nil {
		return
	}
	if _, err = out.Write(append(headerLine, '\n')); err != nil {
		return
	}

	salt := make([]byte, sealSaltSize)
	if _, err = rand.Read(salt); err != nil {
		return
	}
	iv := make([]byte, aes.BlockSize)
	if _, err = rand.Read(iv); err != nil {
		return
	}
	block, err := aes.NewCipher(deriveSealKey(password, salt))
	if err != nil {
		return
	}
	if _, err = out.Write(salt); err != nil {
		return
	}
	if _, err = out.Write(iv); err != nil {
		return
	}
	stream := &cipher.StreamWriter{S: cipher.NewCTR(block, iv), W: out}
	defer func() {
		if e := stream.Close(); e != nil {
			err = errors.Join(err, e)
		}
	}()
	_, err = io.Copy(stream, in)
	return
}

// readSealHeader parses the clear header without touching the
// encrypted payload.
func readSealHeader(in io.Reader) (header sealHeader, err error) {
	reader := bufio.NewReader(in)
	headerLine, err := reader.ReadBytes('\n')
	if err != nil {
		return
	}
	err = json.Unmarshal(headerLine, &header)
	return
}

// openSeal decrypts a sealed container back into out and returns its
// header.
func openSeal(password string, in io.Reader, out io.Writer) (header sealHeader, err error) {
	reader := bufio.NewReader(in)
	headerLine, err := reader.ReadBytes('\n')
	if err != nil {
		return
	}
	if err = json.Unmarshal(headerLine, &header); err != nil {
		return
	}

	salt := make([]byte, sealSaltSize)
	if _, err = io.ReadFull(reader, salt); err != nil {
		err = errors.Join(errTruncatedSeal, err)
		return
	}
	iv := make([]byte, aes.BlockSize)
	if _, err = io.ReadFull(reader, iv); err != nil {
		err = errors.Join(errTruncatedSeal, err)
		return
	}
	block, err := aes.NewCipher(deriveSealKey(password, salt))
	if err != nil {
		return
	}
	stream := &cipher.StreamReader{S: cipher.NewCTR(block, iv), R: reader}
	_, err = io.Copy(out, stream)
	return
}

func deriveSealKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, sealKeyIterations, aes.BlockSize, sha256.New)
}
