package config

// schemaJSON validates a Document before it is decoded and resolved,
// catching malformed property bags and missing required fields up front
// rather than letting them reach tf.TransferFunction.Initialize.
const schemaJSON = `{
  "type": "object",
  "required": ["id", "busUrl", "dus"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "busUrl": {"type": "string", "minLength": 1},
    "heartbeatFrequency": {"type": "string"},
    "autoSendPeriod": {"type": "string"},
    "tolerance": {"type": "string"},
    "throttleMinInterval": {"type": "string"},
    "logLevel": {"type": "string"},
    "dus": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["output", "ces"],
        "properties": {
          "id": {"type": "string"},
          "idFormat": {"type": "string"},
          "instance": {"type": "integer"},
          "template": {
            "type": "object",
            "required": ["min", "max"],
            "properties": {
              "min": {"type": "integer"},
              "max": {"type": "integer"}
            }
          },
          "output": {"type": "string", "minLength": 1},
          "autoSendPeriod": {"type": "string"},
          "tolerance": {"type": "string"},
          "throttleMinInterval": {"type": "string"},
          "ces": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["id", "inputs", "output", "outputType", "tf"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "inputs": {"type": "array", "items": {"type": "string"}},
                "output": {"type": "string", "minLength": 1},
                "outputType": {"type": "string", "minLength": 1},
                "maxTolerableTfTime": {"type": "string"},
                "maxSlowDuration": {"type": "string"},
                "tf": {
                  "type": "object",
                  "required": ["class"],
                  "properties": {
                    "class": {"type": "string", "minLength": 1},
                    "properties": {"type": "object"}
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`
