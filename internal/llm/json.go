package llm

import (
	"fmt"
	"strings"
)

// ExtractJSON 은 모델 응답에서 첫 '{'와 마지막 '}' 사이의 JSON 오브젝트를
// 잘라낸다. 모델이 설명 문장이나 코드펜스를 덧붙여도 파싱이 가능하도록 한다.
func ExtractJSON(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("missing json object")
	}
	return trimmed[start : end+1], nil
}
