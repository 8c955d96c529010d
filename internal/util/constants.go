package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 课件上传
const (
	MaxLessonAssetSize = 200 << 20
)

var AllowedLessonAssetExtensions = []string{
	".pdf", ".png", ".jpg", ".jpeg", ".gif", ".webp",
	".mp4", ".mov", ".webm", ".mp3", ".wav",
	".zip", ".txt", ".md", ".pptx", ".docx",
}
