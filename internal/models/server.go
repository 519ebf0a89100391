package models

// DiskStats reports usage of the filesystem holding the upload directory.
type DiskStats struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Free    uint64  `json:"free"`
	Percent float64 `json:"percent"`
}

// ServerInfoResponse is the body of GET /server-info.
type ServerInfoResponse struct {
	Uptime    float64   `json:"uptime"`
	FileCount int       `json:"file_count"`
	TextCount int       `json:"text_count"`
	UploadDir string    `json:"upload_dir"`
	Disk      DiskStats `json:"disk"`
}
