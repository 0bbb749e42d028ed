package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const MimeJSON = "application/json"

// 分页
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// 归档目录
const ArchivePrefix = "worksheets/"
