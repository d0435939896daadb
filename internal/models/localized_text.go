package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// LocalizedText holds the Georgian and English rendering of a display string.
type LocalizedText struct {
	KA string `bson:"ka" json:"ka"`
	EN string `bson:"en" json:"en"`
}

// In returns the text for locale, falling back to the other language when
// the requested one is empty.
func (t LocalizedText) In(locale Locale) string {
	if locale == LocaleEN && t.EN != "" {
		return t.EN
	}
	if t.KA != "" {
		return t.KA
	}
	return t.EN
}

type localizedTextDoc struct {
	KA string `bson:"ka"`
	EN string `bson:"en"`
}

// UnmarshalBSONValue accepts both the {ka, en} sub-document and the legacy
// plain string form, so older catalog documents still snapshot cleanly.
func (t *LocalizedText) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	switch typ {
	case bsontype.Null, bsontype.Undefined:
		*t = LocalizedText{}
		return nil
	case bsontype.EmbeddedDocument:
		var doc localizedTextDoc
		if err := bson.Unmarshal(data, &doc); err != nil {
			return err
		}
		*t = LocalizedText{KA: doc.KA, EN: doc.EN}
		return nil
	case bsontype.String:
		var value string
		if err := bson.UnmarshalValue(typ, data, &value); err != nil {
			return err
		}
		trimmed := strings.TrimSpace(value)
		*t = LocalizedText{KA: trimmed, EN: trimmed}
		return nil
	default:
		return fmt.Errorf("cannot decode %s into LocalizedText", typ)
	}
}

// MarshalBSONValue always writes the sub-document form.
func (t LocalizedText) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(localizedTextDoc{KA: t.KA, EN: t.EN})
}
