package s3copy

// JobFromProperties builds a Job from raw resource properties. Missing
// optional fields default to their zero values; required fields are checked
// when the job runs.
func JobFromProperties(props map[string]any) Job {
	return Job{
		SourceBucket: stringProp(props, "SourceBucket"),
		SourcePrefix: stringProp(props, "SourcePrefix"),
		TargetBucket: stringProp(props, "TargetBucket"),
		TargetPrefix: stringProp(props, "TargetPrefix"),
		FileList:     stringListProp(props, "FileList"),
		Encryption: Encryption{
			ServerSideEncryption: stringProp(props, "ServerSideEncryption"),
			KMSKeyID:             stringProp(props, "KMSKeyId"),
			CustomerAlgorithm:    stringProp(props, "SSECustomerAlgorithm"),
			CustomerKey:          stringProp(props, "SSECustomerKey"),
			CustomerKeyMD5:       stringProp(props, "SSECustomerKeyMD5"),
		},
	}
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func stringListProp(props map[string]any, key string) []string {
	switch v := props[key].(type) {
	case []string:
		return v
	case []any:
		list := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				list = append(list, s)
			}
		}
		return list
	default:
		return nil
	}
}
