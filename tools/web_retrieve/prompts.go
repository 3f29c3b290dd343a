package web_retrieve

const toolDescription = `Web search tool.
Input: a search engine query derived from the current plan and the user query.
Output: one source and its content, where the source is the URL of the page judged most relevant among the search results and the content is the page text as plain text.
Use the source for citations in the final response and the content to answer the user query.`

const generateSearchesPrompt = `You are an expert at turning a research plan into a web search.
Given the user query and the current plan, write the single search engine query most likely to surface a page that answers the query.
Keep it short, specific and in the language of the user query. Include dates, names or locations from the plan when they narrow the search.

Respond only with a JSON object of the form:
{"response": "<search engine query>"}`

const pickPagePrompt = `You choose which web page to read next.
You are given the user query, the current plan, a list of search results (title, link, snippet), the sites that already failed to load and the sites already visited.
Pick the single link most likely to contain the information needed to answer the query.
Never pick a link listed under Failed Sites. Prefer links not listed under Visited Sites.
The link must be copied exactly from the search results.

Respond only with a JSON object of the form:
{"response": "<url>"}`
