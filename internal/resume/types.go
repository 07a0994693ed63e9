package resume

import "encoding/json"

// Link 表示联系方式中的一条带标签的链接（GitHub、LinkedIn 等）。
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url" validate:"omitempty,httpurl"`
}

// Contacts 包含联系信息。
type Contacts struct {
	Email    string `json:"email" validate:"trimmed_email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Links    []Link `json:"links" validate:"dive"`
}

// ExperienceEntry 表示一段工作经历。StartDate/EndDate 仅用于展示，不做解析。
type ExperienceEntry struct {
	Company     string   `json:"company"`
	Position    string   `json:"position"`
	Location    string   `json:"location"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Description string   `json:"description"`
	Bullets     []string `json:"bullets"`
}

// EducationEntry 表示一段教育经历。
type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Details     string `json:"details"`
}

// CustomSection 是用户自定义的分区，使用调用方指定的项目符号渲染。
type CustomSection struct {
	Title        string   `json:"title"`
	BulletSymbol string   `json:"bulletSymbol"`
	Items        []string `json:"items"`
}

// Photo 是 base64 编码的可选照片。Data 为空时等同于没有照片。
type Photo struct {
	MimeType string `json:"mimeType" validate:"required_with=Data,image_mime"`
	Data     string `json:"data" validate:"photo_data"`
}

// Request 是提交给渲染服务的完整简历数据。
// 除 Photo 外所有字段都必须存在；序列字段保持调用方给定的顺序。
type Request struct {
	FullName       string            `json:"fullName" validate:"notblank,max=100"`
	Position       string            `json:"position" validate:"notblank,max=100"`
	Summary        string            `json:"summary" validate:"notblank,max=1500"`
	Contacts       Contacts          `json:"contacts"`
	Skills         []string          `json:"skills" validate:"max=50,dive,max=50"`
	Experience     []ExperienceEntry `json:"experience" validate:"max=10"`
	Education      []EducationEntry  `json:"education" validate:"max=10"`
	CustomSections []CustomSection   `json:"customSections" validate:"max=10"`
	Photo          *Photo            `json:"photo"`
}

// NewEmpty 返回一个所有字段均已初始化的空简历：字符串为空，序列为空切片，Photo 为 nil。
// 每次调用都返回互不共享底层数组的新实例。
func NewEmpty() Request {
	return Request{
		Contacts: Contacts{
			Links: []Link{},
		},
		Skills:         []string{},
		Experience:     []ExperienceEntry{},
		Education:      []EducationEntry{},
		CustomSections: []CustomSection{},
	}
}

// wireRequest has Request's fields without its methods, so MarshalJSON can
// delegate to encoding/json without recursing.
type wireRequest Request

// MarshalJSON emits every field of the aggregate. Nil slices are written as
// [] so a sequence never reaches the wire as null; a nil Photo is written as null.
func (r Request) MarshalJSON() ([]byte, error) {
	out := r.Clone()
	return json.Marshal(wireRequest(out))
}

// Clone returns a deep copy whose slices never alias r's. Nil slices in r come
// back as empty slices.
func (r Request) Clone() Request {
	out := r
	out.Contacts.Links = make([]Link, len(r.Contacts.Links))
	copy(out.Contacts.Links, r.Contacts.Links)

	out.Skills = cloneStrings(r.Skills)

	out.Experience = make([]ExperienceEntry, len(r.Experience))
	for i, e := range r.Experience {
		e.Bullets = cloneStrings(e.Bullets)
		out.Experience[i] = e
	}

	out.Education = make([]EducationEntry, len(r.Education))
	copy(out.Education, r.Education)

	out.CustomSections = make([]CustomSection, len(r.CustomSections))
	for i, cs := range r.CustomSections {
		cs.Items = cloneStrings(cs.Items)
		out.CustomSections[i] = cs
	}

	if r.Photo != nil {
		photo := *r.Photo
		out.Photo = &photo
	}
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
