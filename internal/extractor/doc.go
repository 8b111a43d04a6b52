// Package extractor parses structured knowledge out of analysis reports.
//
// Reports are markdown produced by language models, which means the structure
// is a convention, not a guarantee. Each field (summary, tags, topics) is
// extracted through an ordered chain of patterns, from the well-formed
// section layout down to loose fallbacks:
//
//	ex := extractor.New().Extract(report)
//	// ex.Summary  - first 50 runes of the 摘要/Summary section
//	// ex.Tags     - up to 10 normalized labels from the 标签/Tags line
//	// ex.Topics   - chapter headings with optional [MM:SS - MM:SS] ranges
//	// ex.Warnings - which extraction steps fell back or gave up
//
// Extraction never returns an error. A malformed report produces empty
// fields and warnings, and the caller indexes whatever was recovered.
//
// # Recognized Layout
//
// The canonical report shape:
//
//	# 视频标题
//
//	## 摘要
//	一段话的总结...
//
//	## 核心概念 [02:15 - 05:40]
//	这一章讲解...
//
//	## 标签
//	标签: 心理学, MBTI, 认知功能
//
// Level-1 headings are the document title. Level-2 and deeper headings become
// topics, except the metadata sections (摘要/Summary, 标签/Tags and their
// synonyms). Time ranges accept MM:SS and H:MM:SS.
package extractor
