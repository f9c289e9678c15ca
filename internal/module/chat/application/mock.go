package application

import "strings"

const mockResponse = `
    <sources>
    <source>
    <id>1</id>
    <resource_id>1</resource_id>
    <content>Chunk 1</content>
    <metadata>
        <url>https://aavash.com</url>
        <timestamp></timestamp>
    </metadata>
    </source>
    <source>
    <id>2</id>
    <resource_id>1</resource_id>
    <content>Chunk 2</content>
    <metadata>
        <url>https://aavash.com</url>
        <timestamp></timestamp>
    </metadata>
    </source>
    <source>
    <id>3</id>
    <resource_id>2</resource_id>
    <content>Chunk 32</content>
    <metadata>
        <url>https://aava.sh</url>
        <timestamp></timestamp>
    </metadata>
    </source>
    </sources>
    <answer>
    This is an example answer. <citation>1</citation> <citation>2</citation> <citation>3</citation>
    Another example answer. <citation>2</citation> <citation>3</citation>
    </answer>
    `

// MockLines はクライアント開発用の固定レスポンスを行単位で返します
func MockLines() []string {
	return strings.Split(mockResponse, "\n")
}

// mockStream は固定レスポンスを1行ずつ流すチャネルを返します
func mockStream() <-chan string {
	lines := MockLines()
	out := make(chan string, len(lines))
	for _, line := range lines {
		out <- line
	}
	close(out)
	return out
}
