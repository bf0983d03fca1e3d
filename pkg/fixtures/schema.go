package fixtures

// fixtureSchema describes the JSON fixture format accepted by Load
const fixtureSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "category"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "location": {"type": "string"},
          "category": {"type": "string", "minLength": 1},
          "priority": {"type": "string"},
          "description": {"type": "string"},
          "hazard_required": {"type": "boolean"},
          "occupied": {"type": "boolean"},
          "scheduled_time": {"type": "string"},
          "estimated_duration_minutes": {"type": "integer", "minimum": 0},
          "status": {"enum": ["pending", "assigned", "in_progress", "completed", "cancelled"]},
          "assigned_resource_id": {"type": "string"},
          "created_at": {"type": "string", "format": "date-time"}
        },
        "additionalProperties": false
      }
    },
    "resources": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "certification_level", "availability"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "certification_level": {"type": "string"},
          "performance_rating": {"type": "number", "minimum": 0, "maximum": 5},
          "current_task_count": {"type": "integer", "minimum": 0},
          "availability": {"type": "string"},
          "shift": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`
