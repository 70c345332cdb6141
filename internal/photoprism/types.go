package photoprism

// Album represents a PhotoPrism album
type Album struct {
	UID         string `json:"UID"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
	PhotoCount  int    `json:"PhotoCount"`
	Type        string `json:"Type"`
}

// Photo is an entry of a PhotoPrism photo search result
type Photo struct {
	UID          string  `json:"UID"`
	Title        string  `json:"Title"`
	Type         string  `json:"Type"` // image, live, video, raw, animated
	TakenAt      string  `json:"TakenAt"`
	TakenAtLocal string  `json:"TakenAtLocal"`
	TimeZone     string  `json:"TimeZone"`
	Lat          float64 `json:"Lat"`
	Lng          float64 `json:"Lng"`
	Width        int     `json:"Width"`
	Height       int     `json:"Height"`
	Hash         string  `json:"Hash"`
	OriginalName string  `json:"OriginalName"` // Original filename when uploaded
	FileName     string  `json:"FileName"`     // Current filename
	Mime         string  `json:"Mime"`
	CameraMake   string  `json:"CameraMake"`
	CameraModel  string  `json:"CameraModel"`
	Iso          int     `json:"Iso"`
	FNumber      float64 `json:"FNumber"`
	FocalLength  int     `json:"FocalLength"`
	Exposure     string  `json:"Exposure"`
}

// PhotoDetails is the subset of GET photos/{uid} used for downloads and markers
type PhotoDetails struct {
	UID       string `json:"UID"`
	Type      string `json:"Type"`
	DeletedAt string `json:"DeletedAt"`
	Files     []File `json:"Files"`
}

// File is one physical file of a photo
type File struct {
	UID         string   `json:"UID"`
	Hash        string   `json:"Hash"`
	Name        string   `json:"Name"`
	Primary     bool     `json:"Primary"`
	Width       int      `json:"Width"`
	Height      int      `json:"Height"`
	Orientation int      `json:"Orientation"`
	Markers     []Marker `json:"Markers"`
}

// Marker represents a face/subject region marker on a photo
type Marker struct {
	UID     string  `json:"UID"`
	FileUID string  `json:"FileUID"`
	Type    string  `json:"Type"`
	Src     string  `json:"Src"`
	Name    string  `json:"Name"`
	SubjUID string  `json:"SubjUID"`
	SubjSrc string  `json:"SubjSrc"`
	X       float64 `json:"X"` // Relative X position (0-1)
	Y       float64 `json:"Y"` // Relative Y position (0-1)
	W       float64 `json:"W"` // Relative width (0-1)
	H       float64 `json:"H"` // Relative height (0-1)
	Score   int     `json:"Score"`
	Invalid bool    `json:"Invalid"`
}

// PrimaryFile returns the primary file, falling back to the first one.
func (d *PhotoDetails) PrimaryFile() (File, bool) {
	for _, f := range d.Files {
		if f.Primary {
			return f, true
		}
	}
	if len(d.Files) > 0 {
		return d.Files[0], true
	}
	return File{}, false
}

// Deleted reports whether the photo is archived.
func (d *PhotoDetails) Deleted() bool {
	return d.DeletedAt != ""
}
