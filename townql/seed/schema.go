package seed

// townSchema is what a normalized record must look like before it is stored.
const townSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["town_name"],
  "properties": {
    "town_id":      {"type": ["integer", "null"]},
    "town_name":    {"type": "string", "minLength": 1},
    "county":       {"type": "string"},
    "population":   {"type": ["integer", "null"], "minimum": 0},
    "square_mi":    {"type": ["number", "null"], "minimum": 0},
    "altitude":     {"type": ["integer", "null"]},
    "postal_code":  {"type": ["string", "null"], "pattern": "^05[0-9]{3}$"},
    "office_phone": {"type": ["string", "null"]},
    "clerk_email":  {"type": ["string", "null"]},
    "url":          {"type": ["string", "null"]}
  }
}`
