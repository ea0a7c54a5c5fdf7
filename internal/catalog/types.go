package catalog

import "github.com/italolelis/edge_downloader/internal/edge"

// ProductInfo is one entry of the public catalog API.
type ProductInfo struct {
	Product  string        `json:"Product"`
	Releases []ReleaseInfo `json:"Releases"`
}

type ReleaseInfo struct {
	ReleaseID          int            `json:"ReleaseId"`
	Platform           string         `json:"Platform"`
	Architecture       string         `json:"Architecture"`
	ProductVersion     edge.Version   `json:"ProductVersion"`
	PublishedTime      string         `json:"PublishedTime"`
	ExpectedExpiryDate string         `json:"ExpectedExpiryDate"`
	CVEs               []string       `json:"CVEs"`
	Artifacts          []ArtifactInfo `json:"Artifacts"`
}

type ArtifactInfo struct {
	ArtifactName  string `json:"ArtifactName"`
	Location      string `json:"Location"`
	Hash          string `json:"Hash"`
	HashAlgorithm string `json:"HashAlgorithm"`
	SizeInBytes   uint64 `json:"SizeInBytes"`
}

// DownloadInfo is returned by the versioned file API.
type DownloadInfo struct {
	URL         string `json:"Url"`
	FileID      string `json:"FileId"`
	SizeInBytes int64  `json:"SizeInBytes"`
	Hashes      struct {
		Sha1   string `json:"Sha1"`
		Sha256 string `json:"Sha256"`
	} `json:"Hashes"`
}

// UpdateInfo is one BatchUpdates result.
type UpdateInfo struct {
	ContentID struct {
		Namespace string       `json:"Namespace"`
		Name      string       `json:"Name"`
		Version   edge.Version `json:"Version"`
	} `json:"ContentId"`
}

type updateRequest struct {
	Product             string              `json:"Product"`
	TargetingAttributes targetingAttributes `json:"TargetingAttributes"`
}

// targetingAttributes is sent empty; the service falls back to defaults.
type targetingAttributes struct {
	AppLang    string `json:"AppLang,omitempty"`
	OsPlatform string `json:"OsPlatform,omitempty"`
	OsArch     string `json:"OsArch,omitempty"`
}
