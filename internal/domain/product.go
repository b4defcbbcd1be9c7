package domain

import "time"

type Size string

const (
	SizeXS  Size = "XS"
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

var validSizes = map[Size]struct{}{
	SizeXS: {}, SizeS: {}, SizeM: {}, SizeL: {}, SizeXL: {}, SizeXXL: {},
}

func (s Size) Valid() bool {
	_, ok := validSizes[s]
	return ok
}

type Product struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description"`
	Price       float64   `bson:"price" json:"price"`
	ImageURL    string    `bson:"image_url" json:"image_url"`
	Stock       int       `bson:"stock" json:"stock"`
	Sizes       []Size    `bson:"sizes" json:"sizes"`
	Colors      []string  `bson:"colors" json:"colors"`
	Category    string    `bson:"category" json:"category"`
	Featured    bool      `bson:"featured" json:"featured"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// ProductFilter narrows catalog listings. Zero values mean "no filter".
type ProductFilter struct {
	Category string
	Featured *bool
}
