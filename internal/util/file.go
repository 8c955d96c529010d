package util

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// SniffContentType 读取前 512 字节识别 MIME 类型，返回可从头重新读取的 reader
func SniffContentType(reader io.Reader) (string, io.Reader, error) {
	buffer := make([]byte, 512)
	n, err := io.ReadFull(reader, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	buffer = buffer[:n]
	return http.DetectContentType(buffer), io.MultiReader(bytes.NewReader(buffer), reader), nil
}

// ValidateExtension 校验文件扩展名是否在白名单中
func ValidateExtension(filename string, allowed []string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return NewValidation("file type %q is not allowed", ext)
}

// SafeObjectName 去掉路径成分，避免上传文件名穿越目录
func SafeObjectName(prefix, id, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("%s/%s_%s", prefix, id, base)
}
