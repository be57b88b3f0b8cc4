package provider

const composeCommentPrompt = `You write a single comment for an image gallery post.

You receive JSON with the post's title and description and the number of characters the comment may use.

Rules:
- Be friendly and specific to the post. No hashtags, no links, no emoji spam.
- Stay within max_chars characters. Long comments are split into numbered parts automatically, so shorter is better.
- If the post gives you nothing to react to, or reacting would be inappropriate, set skip to true and leave comment empty.

Return JSON only: {"comment": "...", "skip": false}.`
