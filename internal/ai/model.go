package ai

import "barter_backend/internal/listing"

// Confidence levels an estimate may carry.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// EstimateValueRequest describes an item to price.
type EstimateValueRequest struct {
	Title       string            `json:"title" binding:"required,min=1,max=120"`
	Category    listing.Category  `json:"category" binding:"required,oneof=electronics clothing books furniture sports instruments gaming outdoor art other"`
	Condition   listing.Condition `json:"condition" binding:"required,oneof=new like_new good fair poor"`
	Description *string           `json:"description,omitempty" binding:"omitempty,max=2000"`
}

// ValueEstimate is a fair market value range in USD.
type ValueEstimate struct {
	MinValue       float64 `json:"min_value"`
	MaxValue       float64 `json:"max_value"`
	SuggestedValue float64 `json:"suggested_value"`
	Reasoning      string  `json:"reasoning"`
	Confidence     string  `json:"confidence"`
}

type DescriptionRequest struct {
	Title     string            `json:"title" binding:"required,min=1,max=120"`
	Category  listing.Category  `json:"category" binding:"required,oneof=electronics clothing books furniture sports instruments gaming outdoor art other"`
	Condition listing.Condition `json:"condition" binding:"required,oneof=new like_new good fair poor"`
}

type DescriptionResponse struct {
	Description string `json:"description"`
}

// ClassifyImageRequest carries a base64 image, with or without a
// "data:image/...;base64," prefix.
type ClassifyImageRequest struct {
	ImageB64 string `json:"image_b64" binding:"required"`
}

// Prediction is one label the vision service proposed.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Classification struct {
	Category      listing.Category `json:"category"`
	ImageNetLabel string           `json:"imagenet_label"`
	Confidence    float64          `json:"confidence"`
	Top5          []Prediction     `json:"top5"`
}

// labelCategories maps ImageNet label fragments to listing categories.
var labelCategories = []struct {
	fragment string
	category listing.Category
}{
	{"laptop", listing.CategoryElectronics},
	{"cellular_telephone", listing.CategoryElectronics},
	{"cell_phone", listing.CategoryElectronics},
	{"television", listing.CategoryElectronics},
	{"monitor", listing.CategoryElectronics},
	{"loudspeaker", listing.CategoryElectronics},
	{"speaker", listing.CategoryElectronics},
	{"headphone", listing.CategoryElectronics},
	{"joystick", listing.CategoryGaming},
	{"jersey", listing.CategoryClothing},
	{"suit", listing.CategoryClothing},
	{"boot", listing.CategoryClothing},
	{"sandal", listing.CategoryClothing},
	{"backpack", listing.CategoryClothing},
	{"book_jacket", listing.CategoryBooks},
	{"desk", listing.CategoryFurniture},
	{"chair", listing.CategoryFurniture},
	{"bicycle", listing.CategorySports},
	{"basketball", listing.CategorySports},
	{"tennis_ball", listing.CategorySports},
	{"dumbbell", listing.CategorySports},
	{"skateboard", listing.CategorySports},
	{"surfboard", listing.CategorySports},
	{"acoustic_guitar", listing.CategoryInstruments},
	{"electric_guitar", listing.CategoryInstruments},
	{"violin", listing.CategoryInstruments},
	{"piano", listing.CategoryInstruments},
	{"tent", listing.CategoryOutdoor},
	{"paintbrush", listing.CategoryArt},
}
