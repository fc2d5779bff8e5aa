package services

import (
	"bytes"
	"encoding/json"

	"gorm.io/datatypes"
)

const maxMetadataDepth = 8

var (
	errMetadataNotObject = ValidationError("Metadata must be an object (arrays are not allowed).")
	errMetadataValue     = ValidationError("Metadata values must be strings, numbers, booleans or objects.")
	errMetadataDepth     = ValidationError("Metadata is nested too deeply.")
)

// ParseMetadata 解析 agent 的自定义元数据。
// 顶层必须是对象，值只允许字符串、数字、布尔和嵌套对象。
func ParseMetadata(raw json.RawMessage) (datatypes.JSONMap, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, errMetadataNotObject
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, errMetadataNotObject
	}
	if err := checkMetadata(m, 1); err != nil {
		return nil, err
	}
	return datatypes.JSONMap(m), nil
}

func checkMetadata(m map[string]interface{}, depth int) error {
	if depth > maxMetadataDepth {
		return errMetadataDepth
	}
	for _, v := range m {
		switch val := v.(type) {
		case string, json.Number, bool:
		case map[string]interface{}:
			if err := checkMetadata(val, depth+1); err != nil {
				return err
			}
		default:
			return errMetadataValue
		}
	}
	return nil
}
