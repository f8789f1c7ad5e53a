package inventory

// snapshotSchema describes one installed app as submitted by a device
const snapshotSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["identifier"],
  "properties": {
    "identifier": {"type": "string", "minLength": 1},
    "display_name": {"type": "string"},
    "requested_permissions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["identifier"],
        "properties": {
          "identifier": {"type": "string", "minLength": 1},
          "granted": {"type": "boolean"}
        }
      }
    },
    "is_system_app": {"type": "boolean"},
    "embedded_names": {"type": "array", "items": {"type": "string"}},
    "version_name": {"type": "string"},
    "version_code": {"type": "integer", "minimum": 0},
    "installed_at": {"type": "string"},
    "size_bytes": {"type": "integer", "minimum": 0},
    "icon_ref": {"type": "string"}
  }
}`

// inventorySchema describes a device inventory file
const inventorySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["apps"],
  "properties": {
    "device_id": {"type": "string"},
    "apps": {"type": "array", "items": {"$ref": "#/definitions/snapshot"}}
  },
  "definitions": {
    "snapshot": ` + snapshotSchema + `
  }
}`
