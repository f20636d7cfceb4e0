package llm

const pagePrompt = `You are an accessibility specialist cataloguing the visual assets of scholarly and educational documents.
Assets are figures, tables, images, equations, maps and graphs. Ignore running headers, footers, page numbers and plain body text.`

const pageInstruction = `This image is one page of a document. List every asset on it, top to bottom.
For each asset return:
- assetId: the label printed in the document (e.g. "Figure 1.1", "Table 3"), or a short descriptive label if unlabeled
- assetType: one of Figure, Table, Image, Equation, Map, Graph
- preview: a one-line summary
- altText: complete alt text a screen-reader user could rely on, including data trends and values where relevant
- keywords: 3 to 8 keywords
- taxonomy: a hierarchical subject classification such as "Science > Biology > Genetics"
- boundingBox: x, y, width and height of the asset as percentages (0-100) of the page width and height
Return an empty array when the page has no assets.`

const regionPrompt = `You are an accessibility specialist writing metadata for one visual asset cropped from a document page.`

const regionInstruction = `Describe the asset in this image as a single object with assetId, assetType (Figure, Table, Image, Equation, Map or Graph), preview, altText, keywords and taxonomy.`

const documentPrompt = `You are an accessibility specialist cataloguing the visual assets referenced in a document.
Assets are figures, tables, images, equations, maps and graphs.`

const documentInstruction = `List every asset in this document in reading order. For each asset return assetId, assetType (Figure, Table, Image, Equation, Map or Graph), preview, altText, keywords, taxonomy and pageNumber.
Use pageNumber 0 when the page is not known.`
