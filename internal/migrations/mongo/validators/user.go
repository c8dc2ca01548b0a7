package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"username", "password_hash", "is_active", "date_joined"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":           bson.M{"bsonType": "objectId"},
			"username":      bson.M{"bsonType": "string", "minLength": 1, "maxLength": 150},
			"email":         bson.M{"bsonType": "string"},
			"password_hash": bson.M{"bsonType": "string"},
			"is_staff":      bson.M{"bsonType": "bool"},
			"is_admin":      bson.M{"bsonType": "bool"},
			"is_active":     bson.M{"bsonType": "bool"},
			"date_joined":   bson.M{"bsonType": "date"},
			"last_login":    bson.M{"bsonType": "date"},
		},
	},
}
