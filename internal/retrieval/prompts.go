package retrieval

import (
	"regexp"
	"strings"
)

const systemPrompt = `You are a software developer maintaining a large project.
You are working on an issue submitted to your project.
The issue contains a description marked between <issue> and </issue>.
Your task is to invoke a few search API calls to gather buggy information, then write patches to solve the issues.
`

const selectPrompt = "Based on the files, classes, methods, and code statements from the issue related to the bug, you can use the following search APIs to get more context of the project." +
	"\n- search_class(class_name: str): Search for a class in the codebase" +
	"\n- search_class_in_file(class_name: str, file_name: str): Search for a class in a given file" +
	"\n- search_method_in_file(method_name: str, file_path: str): Search for a method in a given file" +
	"\n- search_method_in_class(method_name: str, class_name: str): Search for a method in a given class" +
	"\n- search_method(method_name: str): Search for a method in the entire codebase" +
	"\n- search_code(code_str: str): Search for a code snippet in the entire codebase" +
	"\n- search_code_in_file(code_str: str, file_path: str): Search for a code snippet in a given file file" +
	"\n- get_code_around_line(file_path: str, line_no: int, window_size: int): Get the code around a given line in a file" +
	"\n\nNote that you can use multiple search APIs in one round." +
	"\n\nNow analyze the issue and select necessary APIs to get more context of the project. Each API call must have concrete arguments as inputs."

const analyzePrompt = "Let's analyze collected context first"

const analyzeSelectPrompt = "Based on your analysis, answer below questions:" +
	"\n- do we need more context: construct search API calls to get more context of the project. (leave it empty if you don't need more context)" +
	"\n- where are bug locations: buggy files and methods. (leave it empty if you don't have enough information)"

const invalidCallsMessage = "The search API calls seem not valid. Please check the arguments you give carefully and try again."

const unresolvedLocationsMessage = "The buggy locations is not precise. You may need to check whether the arguments are correct and search more information."

const faultHintPreamble = "An external analysis tool has been deployed to identify the suspicious code to be fixed. " +
	"You can choose to use the results from this tool, if you think they are useful. " +
	"The tool output is as follows:\n"

const reproHintPreamble = "An external analysis tool has been deployed to construct tests that reproduce the issue. " +
	"You can choose to use the results from this tool, if you think they are useful. " +
	"The tool output is as follows:\n"

var markdownComments = regexp.MustCompile(`(?s)<!--.*?-->`)

// IssuePrompt sanitizes a raw issue body and wraps it in <issue> tags.
// Markdown comments and blank lines are removed, since issue templates leave
// both behind in quantity.
func IssuePrompt(issueText string) string {
	withoutComments := markdownComments.ReplaceAllString(issueText, "")
	var kept []string
	for _, line := range strings.Split(withoutComments, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return "<issue>\n" + strings.Join(kept, "\n") + "\n</issue>"
}
