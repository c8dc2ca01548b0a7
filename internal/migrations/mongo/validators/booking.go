package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_reference",
			"status",
			"customer",
			"tour_reference",
			"number_of_people",
			"preferred_date",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"booking_reference": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 20,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"cancelled",
				},
			},

			"customer": bson.M{
				"bsonType": "object",
				"required": []string{"name", "email", "phone"},
				"properties": bson.M{
					"name":  bson.M{"bsonType": "string", "minLength": 2, "maxLength": 200},
					"email": bson.M{"bsonType": "string", "maxLength": 254},
					"phone": bson.M{"bsonType": "string"},
				},
			},

			"tour_reference": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"number_of_people": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  200,
			},

			"preferred_date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"quoted_total": bson.M{
				"bsonType": []string{"double", "int", "long"},
				"minimum":  0,
			},

			"confirmation": bson.M{
				"bsonType": "object",
				"required": []string{"confirmed_date"},
				"properties": bson.M{
					"confirmed_date": bson.M{"bsonType": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
					"confirmed_time": bson.M{"bsonType": "string", "pattern": `^\d{2}:\d{2}$`},
					"meeting_point":  bson.M{"bsonType": "string", "maxLength": 255},
					"final_price":    bson.M{"bsonType": []string{"double", "int", "long"}, "minimum": 0},
					"confirmed_at":   bson.M{"bsonType": "date"},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
