package models

// UploadMetadata is the form data that accompanies an image upload.
type UploadMetadata struct {
	Name        string   `json:"name" form:"name" validate:"required,max=100" conform:"trim"`
	Category    Category `json:"category" form:"category" validate:"required,category" conform:"trim,lower"`
	Author      string   `json:"author" form:"author" validate:"required,max=100" conform:"trim"`
	Description string   `json:"description" form:"description" validate:"max=1000" conform:"trim"`
}

// Details converts upload metadata into the editable detail set.
func (m UploadMetadata) Details() PostDetails {
	return PostDetails{
		Name:        m.Name,
		Category:    m.Category,
		Author:      m.Author,
		Description: m.Description,
	}
}
