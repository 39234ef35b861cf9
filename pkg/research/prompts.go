package research

const splitterSystemPrompt = `You are a helpful research assistant that splits topics into sub-topics.`

const splitterUserPrompt = `Split the following research topic into 3 distinct, focused sub-topics for further research.
Return the result as a JSON list of strings.

Topic: %s`

const researcherSystemPrompt = `You are a researcher agent. Summarize findings based on search results.`

const researcherUserPrompt = `Research the following sub-topic using the provided search results.
Provide a detailed summary including key insights and citations.

Sub-topic: %s

Search Results:
%s`

const synthesizerSystemPrompt = `You are a synthesizer agent. Create a comprehensive report from research findings.`

const synthesizerUserPrompt = `Synthesize the following research findings into a comprehensive report on the main topic.

Main Topic: %s

Findings:
%s
The report should include:
1. Executive Summary
2. Key Insights by Sub-topic
3. Conflicts or Gaps
4. References (based on the provided sources)`
